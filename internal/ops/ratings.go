package ops

import (
	"context"
	"fmt"
	"log"
	"time"

	"casedesk/internal/apiclient"
	"casedesk/internal/models"
	"casedesk/internal/notify"
	"casedesk/internal/state"
)

// FetchUserRatings replaces the ledger with the server's view. A response
// holding scores outside the configured scale is rejected whole.
func (o *Ops) FetchUserRatings(ctx context.Context) ([]models.Rating, error) {
	if o.token() == "" {
		return nil, ErrNotSignedIn
	}
	t := o.store.Begin(state.ResRatings)
	done := o.start(state.SliceLedger, &t)
	defer done()

	ratings, err := o.api.UserRatings(ctx, o.token())
	if err != nil {
		return nil, o.fail(ctx, state.SliceLedger, &t, err, "Error fetching ratings")
	}
	if err := o.scale.Conforms(ratings); err != nil {
		err = fmt.Errorf("%w: %v", ErrScaleMismatch, err)
		msg := fmt.Sprintf("Ratings use a different scale than 1..%d", o.scale.Max)
		if o.store.Mark(state.SliceLedger, &t, state.Failed{Message: msg}) {
			notify.Error(o.notifier, msg)
		}
		return nil, err
	}
	o.store.CommitLedger(t, state.RatingsReplaced{Ratings: ratings})
	return ratings, nil
}

// SubmitRating sends one score and appends it to the ledger once the server
// confirms. The ledger is never changed before confirmation.
func (o *Ops) SubmitRating(ctx context.Context, caseID string, score int) error {
	if err := o.scale.Validate(score); err != nil {
		return o.reject(state.SliceLedger, invalid("%v", err))
	}
	sess := o.store.Snapshot().Session
	if !sess.IsAuthenticated() {
		return ErrNotSignedIn
	}
	done := o.start(state.SliceLedger, nil)
	defer done()

	sub := apiclient.RatingSubmission{QuestionID: caseID, Rating: score, UserID: sess.UserID()}
	if err := o.api.SubmitRating(ctx, sess.Token, sub); err != nil {
		return o.fail(ctx, state.SliceLedger, nil, err, "Error submitting rating")
	}
	if now := o.store.Snapshot().Session.UserID(); now != sess.UserID() {
		log.Printf("rating_dropped case=%s submitted_by=%s current=%q", caseID, sess.UserID(), now)
		return ErrIdentityChanged
	}
	o.store.DispatchLedger(state.RatingAdded{Rating: models.Rating{
		CaseID:    caseID,
		UserID:    sess.UserID(),
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}})
	notify.Success(o.notifier, "Rating submitted successfully")
	return nil
}

func (o *Ops) UpdateRating(ctx context.Context, caseID string, score int) error {
	if err := o.scale.Validate(score); err != nil {
		return o.reject(state.SliceLedger, invalid("%v", err))
	}
	if !o.store.Snapshot().Ledger.Has(caseID) {
		return o.reject(state.SliceLedger, invalid("no rating to update for this case"))
	}
	done := o.start(state.SliceLedger, nil)
	defer done()

	if err := o.api.UpdateRating(ctx, o.token(), caseID, score); err != nil {
		return o.fail(ctx, state.SliceLedger, nil, err, "Error updating rating")
	}
	o.store.DispatchLedger(state.RatingUpdated{CaseID: caseID, Score: score})
	notify.Success(o.notifier, "Rating updated successfully")
	return nil
}

func (o *Ops) DeleteRating(ctx context.Context, caseID string) error {
	done := o.start(state.SliceLedger, nil)
	defer done()

	if err := o.api.DeleteRating(ctx, o.token(), caseID); err != nil {
		return o.fail(ctx, state.SliceLedger, nil, err, "Error deleting rating")
	}
	o.store.DispatchLedger(state.RatingDeleted{CaseID: caseID})
	notify.Success(o.notifier, "Rating deleted successfully")
	return nil
}

// FetchRatingStats loads platform-wide stats. They are kept apart from the
// ledger's own count and mean.
func (o *Ops) FetchRatingStats(ctx context.Context) (models.RatingStats, error) {
	t := o.store.Begin(state.ResRatingStats)
	done := o.start(state.SliceLedger, &t)
	defer done()

	st, err := o.api.RatingStats(ctx, o.token())
	if err != nil {
		return models.RatingStats{}, o.fail(ctx, state.SliceLedger, &t, err, "Error fetching statistics")
	}
	o.store.CommitLedger(t, state.PlatformStatsSet{Stats: st})
	return st, nil
}
