package ops

import (
	"context"
	"errors"
	"math"
	"testing"

	"casedesk/internal/apiclient"
	"casedesk/internal/models"
	"casedesk/internal/rating"
	"casedesk/internal/state"
)

func ledgerStats(t *testing.T, h *harness, count int, mean float64) {
	t.Helper()
	l := h.store.Snapshot().Ledger
	if l.Count != count || math.Abs(l.Mean-mean) > state.MeanTolerance {
		t.Fatalf("expected count=%d mean=%v, got count=%d mean=%v", count, mean, l.Count, l.Mean)
	}
}

func TestRatingLifecycle(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleUser)
	ctx := context.Background()

	if err := h.ops.SubmitRating(ctx, "c1", 4); err != nil {
		t.Fatalf("submit c1: %v", err)
	}
	ledgerStats(t, h, 1, 4.0)
	if h.api.lastSub.UserID != "u1" || h.api.lastSub.QuestionID != "c1" {
		t.Fatalf("unexpected submission: %#v", h.api.lastSub)
	}

	if err := h.ops.SubmitRating(ctx, "c2", 2); err != nil {
		t.Fatalf("submit c2: %v", err)
	}
	ledgerStats(t, h, 2, 3.0)

	if err := h.ops.UpdateRating(ctx, "c1", 5); err != nil {
		t.Fatalf("update c1: %v", err)
	}
	ledgerStats(t, h, 2, 3.5)

	if err := h.ops.DeleteRating(ctx, "c2"); err != nil {
		t.Fatalf("delete c2: %v", err)
	}
	ledgerStats(t, h, 1, 5.0)
}

func TestSubmitRatingDomainErrorLeavesLedger(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleUser)
	h.api.err["SubmitRating"] = &apiclient.Error{Status: 400, Message: "You have already rated this question"}

	err := h.ops.SubmitRating(context.Background(), "c1", 3)
	if apiclient.Classify(err) != apiclient.KindDomain {
		t.Fatalf("expected domain error, got %v", err)
	}
	l := h.store.Snapshot().Ledger
	if l.Count != 0 || l.Loading || l.Error != "You have already rated this question" {
		t.Fatalf("unexpected ledger: %#v", l)
	}
	if !h.store.Snapshot().Session.IsAuthenticated() {
		t.Fatalf("a domain error must not sign the client out")
	}
}

func TestSubmitRatingOutsideScaleMakesNoCall(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleUser)
	if err := h.ops.SubmitRating(context.Background(), "c1", 7); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.api.count("SubmitRating") != 0 {
		t.Fatalf("expected no call")
	}
}

func TestFetchUserRatingsScaleMismatch(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleUser)
	h.store.DispatchLedger(state.RatingsReplaced{Ratings: []models.Rating{{CaseID: "keep", Score: 2}}})
	h.api.ratings = []models.Rating{{CaseID: "c1", Score: 4}, {CaseID: "c2", Score: 9}}

	if _, err := h.ops.FetchUserRatings(context.Background()); !errors.Is(err, ErrScaleMismatch) {
		t.Fatalf("expected ErrScaleMismatch, got %v", err)
	}
	l := h.store.Snapshot().Ledger
	if !l.Has("keep") || l.Count != 1 || l.Loading || l.Error == "" {
		t.Fatalf("ledger must be untouched on mismatch: %#v", l)
	}

	h10 := newHarness(10)
	h10.signIn(models.RoleUser)
	h10.api.ratings = h.api.ratings
	if _, err := h10.ops.FetchUserRatings(context.Background()); err != nil {
		t.Fatalf("10-point scale should accept 9: %v", err)
	}
	ledgerStats(t, h10, 2, 6.5)
}

func TestWorklistAfterSubmit(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleUser)
	h.api.cases = []models.Case{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}
	ctx := context.Background()
	_, _ = h.ops.FetchQuestions(ctx, models.CaseFilters{}, 1, 10)

	if err := h.ops.SubmitRating(ctx, "c2", 5); err != nil {
		t.Fatalf("submit: %v", err)
	}
	work := state.Worklist(h.store.Snapshot())
	if len(work) != 2 || work[0].ID != "c1" || work[1].ID != "c3" {
		t.Fatalf("unexpected worklist: %#v", work)
	}
}

func TestWorkflowDrivesSubmit(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleUser)
	w := rating.NewWorkflow(h.ops.Scale())
	ctx := context.Background()
	send := func(ctx context.Context, score int) error { return h.ops.SubmitRating(ctx, "c1", score) }

	if _, err := w.Submit(ctx, "c1", "u1", send); !errors.Is(err, rating.ErrMissingScore) {
		t.Fatalf("expected missing score, got %v", err)
	}
	_, _ = w.Select("c1", 4)
	h.api.err["SubmitRating"] = &apiclient.Error{Status: 400, Message: "nope"}
	e, err := w.Submit(ctx, "c1", "u1", send)
	if err == nil || e.Phase != rating.ScoreSelected || e.Score != 4 {
		t.Fatalf("expected retryable failure, got %v %v", e, err)
	}
	delete(h.api.err, "SubmitRating")
	if e, err := w.Submit(ctx, "c1", "u1", send); err != nil || e.Phase != rating.Rated {
		t.Fatalf("expected Rated, got %v %v", e, err)
	}
	if h.api.count("SubmitRating") != 2 {
		t.Fatalf("expected exactly two calls, got %d", h.api.count("SubmitRating"))
	}
	ledgerStats(t, h, 1, 4.0)
}

func TestFetchRatingStatsKeptApart(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleUser)
	_ = h.ops.SubmitRating(context.Background(), "c1", 2)
	if _, err := h.ops.FetchRatingStats(context.Background()); err != nil {
		t.Fatalf("stats: %v", err)
	}
	l := h.store.Snapshot().Ledger
	if l.Platform.TotalRatings != 42 || l.Count != 1 || l.Mean != 2 {
		t.Fatalf("platform stats leaked into ledger stats: %#v", l)
	}
}

func TestSubmitRatingIdentitySwitchedMidCall(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleUser)
	w := rating.NewWorkflow(h.ops.Scale())
	ctx := context.Background()
	h.api.hook["SubmitRating"] = func() {
		other := models.User{ID: "u2", Email: "sam@example.com", Role: models.RoleUser}
		_ = h.store.SetCredentials(context.Background(), other, "tok-2")
	}

	_, _ = w.Select("c1", 3)
	e, err := w.Submit(ctx, "c1", "u1", func(ctx context.Context, score int) error {
		return h.ops.SubmitRating(ctx, "c1", score)
	})
	if !errors.Is(err, ErrIdentityChanged) {
		t.Fatalf("expected identity change error, got %v", err)
	}
	if e.Phase != rating.ScoreSelected || e.Score != 3 {
		t.Fatalf("expected case to stay retryable, got %#v", e)
	}
	ledgerStats(t, h, 0, 0)
	if h.store.Snapshot().Ledger.Loading {
		t.Fatalf("ledger left loading")
	}
}
