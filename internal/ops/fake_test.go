package ops

import (
	"context"
	"sync"

	"casedesk/internal/apiclient"
	"casedesk/internal/credstore"
	"casedesk/internal/models"
	"casedesk/internal/notify"
	"casedesk/internal/rating"
	"casedesk/internal/state"
)

// fakeAPI answers from in-memory fixtures. err, when set for a method name,
// is returned instead.
type fakeAPI struct {
	mu      sync.Mutex
	calls   map[string]int
	err     map[string]error
	user    models.User
	token   string
	cases   []models.Case
	ratings []models.Rating
	users   []models.Member
	hook    map[string]func()

	lastUpload apiclient.CaseUpload
	lastQuery  apiclient.CaseQuery
	lastSub    apiclient.RatingSubmission
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: map[string]int{},
		err:   map[string]error{},
		hook:  map[string]func(){},
		user:  models.User{ID: "u1", Email: "rae@example.com", Name: "Rae", Role: models.RoleUser},
		token: "tok-1",
	}
}

func (f *fakeAPI) call(name string) error {
	f.mu.Lock()
	f.calls[name]++
	h := f.hook[name]
	err := f.err[name]
	f.mu.Unlock()
	if h != nil {
		h()
	}
	return err
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (apiclient.AuthResult, error) {
	if err := f.call("Login"); err != nil {
		return apiclient.AuthResult{}, err
	}
	return apiclient.AuthResult{User: f.user, Token: f.token}, nil
}

func (f *fakeAPI) Register(ctx context.Context, req apiclient.RegisterRequest) (apiclient.AuthResult, error) {
	if err := f.call("Register"); err != nil {
		return apiclient.AuthResult{}, err
	}
	u := f.user
	u.Name, u.Email = req.Name, req.Email
	return apiclient.AuthResult{User: u, Token: f.token}, nil
}

func (f *fakeAPI) Profile(ctx context.Context, token string) (models.User, error) {
	if err := f.call("Profile"); err != nil {
		return models.User{}, err
	}
	return f.user, nil
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, token string, req apiclient.ProfileUpdate) (models.User, error) {
	if err := f.call("UpdateProfile"); err != nil {
		return models.User{}, err
	}
	u := f.user
	if req.Name != "" {
		u.Name = req.Name
	}
	return u, nil
}

func (f *fakeAPI) ChangePassword(ctx context.Context, token, current, next string) error {
	return f.call("ChangePassword")
}

func (f *fakeAPI) ForgotPassword(ctx context.Context, email string) error {
	return f.call("ForgotPassword")
}

func (f *fakeAPI) ResetPassword(ctx context.Context, resetToken, password string) error {
	return f.call("ResetPassword")
}

func (f *fakeAPI) ListQuestions(ctx context.Context, token string, q apiclient.CaseQuery) (models.CasePage, error) {
	f.mu.Lock()
	f.lastQuery = q
	f.mu.Unlock()
	if err := f.call("ListQuestions"); err != nil {
		return models.CasePage{}, err
	}
	page, p := state.Page(f.cases, q.Page, q.Limit)
	return models.CasePage{Questions: page, CurrentPage: p.CurrentPage, TotalPages: p.TotalPages, TotalItems: p.TotalItems}, nil
}

func (f *fakeAPI) GetQuestion(ctx context.Context, token, id string) (models.Case, error) {
	if err := f.call("GetQuestion"); err != nil {
		return models.Case{}, err
	}
	for _, c := range f.cases {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Case{}, &apiclient.Error{Status: 404, Message: "Question not found"}
}

func (f *fakeAPI) QuestionStats(ctx context.Context, token string) (models.CaseStats, error) {
	if err := f.call("QuestionStats"); err != nil {
		return models.CaseStats{}, err
	}
	return models.CaseStats{TotalQuestions: len(f.cases)}, nil
}

func (f *fakeAPI) CreateQuestion(ctx context.Context, token string, up apiclient.CaseUpload) (models.Case, error) {
	f.lastUpload = up
	if err := f.call("CreateQuestion"); err != nil {
		return models.Case{}, err
	}
	return models.Case{ID: "new", Title: up.Title, Description: up.Description, Active: true}, nil
}

func (f *fakeAPI) UpdateQuestion(ctx context.Context, token, id string, up apiclient.CaseUpload) (models.Case, error) {
	f.lastUpload = up
	if err := f.call("UpdateQuestion"); err != nil {
		return models.Case{}, err
	}
	return models.Case{ID: id, Title: up.Title, Description: up.Description, Images: up.ExistingImages, Active: true}, nil
}

func (f *fakeAPI) DeleteQuestion(ctx context.Context, token, id string) error {
	return f.call("DeleteQuestion")
}

func (f *fakeAPI) SetQuestionStatus(ctx context.Context, token, id string, active bool) (models.Case, error) {
	if err := f.call("SetQuestionStatus"); err != nil {
		return models.Case{}, err
	}
	return models.Case{ID: id, Active: active}, nil
}

func (f *fakeAPI) UserRatings(ctx context.Context, token string) ([]models.Rating, error) {
	if err := f.call("UserRatings"); err != nil {
		return nil, err
	}
	return append([]models.Rating{}, f.ratings...), nil
}

func (f *fakeAPI) SubmitRating(ctx context.Context, token string, sub apiclient.RatingSubmission) error {
	f.mu.Lock()
	f.lastSub = sub
	f.mu.Unlock()
	return f.call("SubmitRating")
}

func (f *fakeAPI) UpdateRating(ctx context.Context, token, caseID string, score int) error {
	return f.call("UpdateRating")
}

func (f *fakeAPI) DeleteRating(ctx context.Context, token, caseID string) error {
	return f.call("DeleteRating")
}

func (f *fakeAPI) RatingStats(ctx context.Context, token string) (models.RatingStats, error) {
	if err := f.call("RatingStats"); err != nil {
		return models.RatingStats{}, err
	}
	return models.RatingStats{TotalRatings: 42, AverageRating: 3.3}, nil
}

func (f *fakeAPI) Users(ctx context.Context, token string) ([]models.Member, error) {
	if err := f.call("Users"); err != nil {
		return nil, err
	}
	return append([]models.Member{}, f.users...), nil
}

func (f *fakeAPI) UserStats(ctx context.Context, token string) (models.UserStats, error) {
	if err := f.call("UserStats"); err != nil {
		return models.UserStats{}, err
	}
	return models.UserStats{TotalUsers: len(f.users)}, nil
}

func (f *fakeAPI) UserDetails(ctx context.Context, token, id string) (models.Member, error) {
	if err := f.call("UserDetails"); err != nil {
		return models.Member{}, err
	}
	return models.Member{ID: id}, nil
}

func (f *fakeAPI) UserActivities(ctx context.Context, token, id string) ([]models.Activity, error) {
	if err := f.call("UserActivities"); err != nil {
		return nil, err
	}
	return []models.Activity{{ID: "a1", Action: "rated"}}, nil
}

func (f *fakeAPI) UpdateUserRole(ctx context.Context, token, id string, role models.Role) (models.Member, error) {
	if err := f.call("UpdateUserRole"); err != nil {
		return models.Member{}, err
	}
	return models.Member{ID: id, Role: role, Active: true}, nil
}

func (f *fakeAPI) DeactivateUser(ctx context.Context, token, id string) error {
	return f.call("DeactivateUser")
}

type harness struct {
	api   *fakeAPI
	store *state.Store
	mem   *credstore.Memory
	queue *notify.Queue
	ops   *Ops
}

func newHarness(scaleMax int) *harness {
	h := &harness{api: newFakeAPI(), mem: credstore.NewMemory(), queue: notify.NewQueue(50)}
	h.store = state.New(h.mem, state.Options{PageSize: 10, ScaleMax: scaleMax})
	scale, _ := rating.NewScale(scaleMax)
	h.ops = New(h.api, h.store, h.queue, Options{Scale: scale})
	return h
}

func (h *harness) signIn(role models.Role) {
	h.api.user.Role = role
	_ = h.store.SetCredentials(context.Background(), h.api.user, h.api.token)
}
