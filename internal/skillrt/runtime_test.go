package skillrt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/parleybot/parley/internal/domain/dialog"
)

func ctxWithText(text string) dialog.Context {
	return dialog.Context{Utterances: []dialog.Utterance{{Speaker: dialog.SpeakerHuman, Text: text}}}
}

func TestBatchOneResultPerContext(t *testing.T) {
	rt := New("echo", func(_ context.Context, dctx dialog.Context, _ int64) (dialog.SkillResult, error) {
		last, _ := dctx.LastUtterance()
		return dialog.SkillResult{Text: "echo: " + last.Text, Confidence: 0.5}, nil
	}, 42, nil)

	out := rt.Batch(context.Background(), []dialog.Context{
		ctxWithText("one"), ctxWithText("two"), ctxWithText("three"),
	}, nil)

	if len(out) != 3 {
		t.Fatalf("results = %d, want 3", len(out))
	}
	for i, want := range []string{"echo: one", "echo: two", "echo: three"} {
		if out[i].Text != want {
			t.Errorf("out[%d].Text = %q, want %q", i, out[i].Text, want)
		}
	}
}

func TestBatchIsolatesFailingItem(t *testing.T) {
	rt := New("flaky", func(_ context.Context, dctx dialog.Context, _ int64) (dialog.SkillResult, error) {
		last, _ := dctx.LastUtterance()
		if last.Text == "bad" {
			return dialog.SkillResult{}, errors.New("cannot handle this")
		}
		return dialog.SkillResult{Text: "ok", Confidence: 1}, nil
	}, 42, nil)

	out := rt.Batch(context.Background(), []dialog.Context{
		ctxWithText("good"), ctxWithText("bad"), ctxWithText("good"),
	}, nil)

	if out[0].Text != "ok" || out[2].Text != "ok" {
		t.Errorf("siblings affected: %+v", out)
	}
	if out[1].Text != "" || out[1].Confidence != 0 {
		t.Errorf("failed item = %+v, want neutral tuple", out[1])
	}
	if out[1].Attrs == nil || out[1].HumanAttrs == nil || out[1].BotAttrs == nil {
		t.Error("neutral tuple must carry empty maps, not nil")
	}
}

func TestBatchRecoversFromPanic(t *testing.T) {
	rt := New("panicky", func(_ context.Context, dctx dialog.Context, _ int64) (dialog.SkillResult, error) {
		last, _ := dctx.LastUtterance()
		if last.Text == "kaboom" {
			panic("unexpected state")
		}
		return dialog.SkillResult{Text: "fine", Confidence: 1}, nil
	}, 42, nil)

	out := rt.Batch(context.Background(), []dialog.Context{
		ctxWithText("kaboom"), ctxWithText("calm"),
	}, nil)

	if out[0].Text != "" {
		t.Errorf("panicked item = %+v, want neutral tuple", out[0])
	}
	if out[1].Text != "fine" {
		t.Errorf("sibling = %+v", out[1])
	}
}

func TestBatchSeedPrecedence(t *testing.T) {
	rt := New("seeded", func(_ context.Context, _ dialog.Context, seed int64) (dialog.SkillResult, error) {
		return dialog.SkillResult{Text: fmt.Sprintf("seed=%d", seed), Confidence: 1}, nil
	}, 2718, nil)

	out := rt.Batch(context.Background(), []dialog.Context{ctxWithText("hi")}, nil)
	if out[0].Text != "seed=2718" {
		t.Errorf("default seed: %q", out[0].Text)
	}

	req := int64(7)
	out = rt.Batch(context.Background(), []dialog.Context{ctxWithText("hi")}, &req)
	if out[0].Text != "seed=7" {
		t.Errorf("request seed: %q", out[0].Text)
	}
}

func TestBatchEmpty(t *testing.T) {
	rt := New("echo", func(context.Context, dialog.Context, int64) (dialog.SkillResult, error) {
		return dialog.SkillResult{Text: "x"}, nil
	}, 0, nil)

	out := rt.Batch(context.Background(), nil, nil)
	if len(out) != 0 {
		t.Errorf("results = %v, want empty", out)
	}
}
