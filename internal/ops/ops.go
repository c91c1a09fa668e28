// Package ops runs the asynchronous procedures that talk to the case API and
// fold the results into a client's state.Store. Every operation clears its
// loading flag on all paths, records failures on the store and raises a
// notification. Nothing is retried automatically.
package ops

import (
	"context"
	"log"

	"casedesk/internal/apiclient"
	"casedesk/internal/models"
	"casedesk/internal/notify"
	"casedesk/internal/rating"
	"casedesk/internal/state"
)

// API is the subset of the case API the operations depend on.
type API interface {
	Login(ctx context.Context, email, password string) (apiclient.AuthResult, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (apiclient.AuthResult, error)
	Profile(ctx context.Context, token string) (models.User, error)
	UpdateProfile(ctx context.Context, token string, req apiclient.ProfileUpdate) (models.User, error)
	ChangePassword(ctx context.Context, token, current, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) error

	ListQuestions(ctx context.Context, token string, q apiclient.CaseQuery) (models.CasePage, error)
	GetQuestion(ctx context.Context, token, id string) (models.Case, error)
	QuestionStats(ctx context.Context, token string) (models.CaseStats, error)
	CreateQuestion(ctx context.Context, token string, up apiclient.CaseUpload) (models.Case, error)
	UpdateQuestion(ctx context.Context, token, id string, up apiclient.CaseUpload) (models.Case, error)
	DeleteQuestion(ctx context.Context, token, id string) error
	SetQuestionStatus(ctx context.Context, token, id string, active bool) (models.Case, error)

	UserRatings(ctx context.Context, token string) ([]models.Rating, error)
	SubmitRating(ctx context.Context, token string, sub apiclient.RatingSubmission) error
	UpdateRating(ctx context.Context, token, caseID string, score int) error
	DeleteRating(ctx context.Context, token, caseID string) error
	RatingStats(ctx context.Context, token string) (models.RatingStats, error)

	Users(ctx context.Context, token string) ([]models.Member, error)
	UserStats(ctx context.Context, token string) (models.UserStats, error)
	UserDetails(ctx context.Context, token, id string) (models.Member, error)
	UserActivities(ctx context.Context, token, id string) ([]models.Activity, error)
	UpdateUserRole(ctx context.Context, token, id string, role models.Role) (models.Member, error)
	DeactivateUser(ctx context.Context, token, id string) error
}

type Options struct {
	Scale  rating.Scale
	Images ImageLimits
}

type Ops struct {
	api      API
	store    *state.Store
	notifier notify.Notifier
	scale    rating.Scale
	images   ImageLimits
}

func New(api API, store *state.Store, n notify.Notifier, opts Options) *Ops {
	if n == nil {
		n = notify.Discard{}
	}
	if opts.Scale.Max == 0 {
		opts.Scale = rating.Scale{Max: 5}
	}
	if opts.Images == (ImageLimits{}) {
		opts.Images = DefaultImageLimits()
	}
	return &Ops{api: api, store: store, notifier: n, scale: opts.Scale, images: opts.Images}
}

func (o *Ops) Store() *state.Store  { return o.store }
func (o *Ops) Scale() rating.Scale  { return o.scale }
func (o *Ops) Images() ImageLimits { return o.images }

func (o *Ops) token() string {
	return o.store.Snapshot().Session.Token
}

// start marks a slice busy and clears its previous error. The returned func
// clears the loading flag and is meant to be deferred.
func (o *Ops) start(sl state.Slice, t *state.Ticket) func() {
	o.store.Mark(sl, t, state.ErrorCleared{})
	o.store.Mark(sl, t, state.Loading{On: true})
	return func() { o.store.Mark(sl, t, state.Loading{On: false}) }
}

// fail records err against a slice and notifies the user. A rejected
// credential forces a logout of this client.
func (o *Ops) fail(ctx context.Context, sl state.Slice, t *state.Ticket, err error, fallback string) error {
	if apiclient.Classify(err) == apiclient.KindAuth {
		o.forceLogout(ctx)
		msg := apiclient.Message(err, "Session expired, please sign in again")
		o.store.Mark(state.SliceSession, nil, state.Failed{Message: msg})
		notify.Error(o.notifier, msg)
		return err
	}
	msg := apiclient.Message(err, fallback)
	if !o.store.Mark(sl, t, state.Failed{Message: msg}) {
		return err
	}
	log.Printf("sync_failed kind=%s status=%d err=%v", apiclient.Classify(err), apiclient.Status(err), err)
	notify.Error(o.notifier, msg)
	return err
}

// reject records a validation failure. No request was made.
func (o *Ops) reject(sl state.Slice, err error) error {
	msg := Reason(err)
	o.store.Mark(sl, nil, state.Failed{Message: msg})
	notify.Error(o.notifier, msg)
	return err
}

func (o *Ops) forceLogout(ctx context.Context) {
	if err := o.store.Logout(ctx); err != nil {
		log.Printf("logout storage cleanup failed: %v", err)
	}
}
