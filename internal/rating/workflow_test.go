package rating

import (
	"context"
	"errors"
	"testing"

	"casedesk/internal/models"
)

func newWorkflow(t *testing.T, max int) *Workflow {
	t.Helper()
	s, err := NewScale(max)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	return NewWorkflow(s)
}

func TestNewScaleRejectsUnsupported(t *testing.T) {
	if _, err := NewScale(7); err == nil {
		t.Fatalf("expected error for scale 7")
	}
}

func TestScaleConforms(t *testing.T) {
	s, _ := NewScale(5)
	if err := s.Conforms([]models.Rating{{CaseID: "a", Score: 5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Conforms([]models.Rating{{CaseID: "a", Score: 3}, {CaseID: "b", Score: 8}})
	if !errors.Is(err, ErrOutOfScale) {
		t.Fatalf("expected ErrOutOfScale, got %v", err)
	}
}

func TestSubmitWithoutScoreMakesNoCall(t *testing.T) {
	w := newWorkflow(t, 5)
	called := false
	_, err := w.Submit(context.Background(), "c1", "u1", func(context.Context, int) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrMissingScore) || called {
		t.Fatalf("expected MissingScore without a call, err=%v called=%v", err, called)
	}
}

func TestSubmitWithoutUserMakesNoCall(t *testing.T) {
	w := newWorkflow(t, 5)
	if _, err := w.Select("c1", 3); err != nil {
		t.Fatalf("select: %v", err)
	}
	called := false
	_, err := w.Submit(context.Background(), "c1", "", func(context.Context, int) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrUnauthenticated) || called {
		t.Fatalf("expected Unauthenticated without a call, err=%v called=%v", err, called)
	}
}

func TestSelectOutsideScale(t *testing.T) {
	w := newWorkflow(t, 5)
	if _, err := w.Select("c1", 9); !errors.Is(err, ErrOutOfScale) {
		t.Fatalf("expected ErrOutOfScale, got %v", err)
	}
	w10 := newWorkflow(t, 10)
	if e, err := w10.Select("c1", 9); err != nil || e.Phase != ScoreSelected {
		t.Fatalf("expected 9 to be valid on a 10 scale, got %v %v", e, err)
	}
}

func TestSubmitFailureKeepsScore(t *testing.T) {
	w := newWorkflow(t, 5)
	_, _ = w.Select("c1", 4)
	boom := errors.New("boom")
	e, err := w.Submit(context.Background(), "c1", "u1", func(_ context.Context, score int) error {
		if score != 4 {
			t.Fatalf("expected score 4, got %d", score)
		}
		if got := w.Entry("c1").Phase; got != Submitting {
			t.Fatalf("expected Submitting during send, got %s", got)
		}
		return boom
	})
	if !errors.Is(err, boom) || e.Phase != ScoreSelected || e.Score != 4 {
		t.Fatalf("expected retryable selection, got %v %v", e, err)
	}

	e, err = w.Submit(context.Background(), "c1", "u1", func(context.Context, int) error { return nil })
	if err != nil || e.Phase != Rated {
		t.Fatalf("expected Rated after retry, got %v %v", e, err)
	}
}

func TestForgetReturnsToUnrated(t *testing.T) {
	w := newWorkflow(t, 5)
	_, _ = w.Select("c1", 2)
	_, _ = w.Submit(context.Background(), "c1", "u1", func(context.Context, int) error { return nil })
	w.Forget("c1")
	if e := w.Entry("c1"); e.Phase != Unrated || e.Score != 0 {
		t.Fatalf("expected Unrated, got %v", e)
	}
}
