package api

import (
	"time"

	"casedesk/internal/gate"
	"casedesk/internal/models"
	"casedesk/internal/rating"
	"casedesk/internal/sanitize"
	"casedesk/internal/state"
)

const summaryRunes = 160

type sessionView struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	Landing       string       `json:"landing"`
	Loading       bool         `json:"loading"`
	Error         string       `json:"error,omitempty"`
}

func newSessionView(s state.SessionState) sessionView {
	v := sessionView{Authenticated: s.IsAuthenticated(), User: s.User, Landing: gate.RouteLogin, Loading: s.Loading, Error: s.Error}
	if v.Authenticated {
		v.Landing = gate.Landing(s.User.Role)
	}
	return v
}

// caseView is a case as the browser shell renders it. Description is
// sanitized here and nowhere else.
type caseView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Summary       string    `json:"summary"`
	Images        []string  `json:"images"`
	Active        bool      `json:"active"`
	TotalRatings  int       `json:"totalRatings"`
	AverageRating float64   `json:"averageRating"`
	CreatedAt     time.Time `json:"createdAt"`
	MyScore       int       `json:"myScore,omitempty"`
	Phase         string    `json:"phase,omitempty"`
}

func newCaseView(c models.Case) caseView {
	images := c.Images
	if images == nil {
		images = []string{}
	}
	return caseView{
		ID:            c.ID,
		Title:         c.Title,
		Description:   sanitize.RichText(c.Description),
		Summary:       truncate(sanitize.PlainText(c.Description), summaryRunes),
		Images:        images,
		Active:        c.Active,
		TotalRatings:  c.TotalRatings,
		AverageRating: c.AverageRating,
		CreatedAt:     c.CreatedAt,
	}
}

func newCaseViews(cs []models.Case) []caseView {
	out := make([]caseView, 0, len(cs))
	for _, c := range cs {
		out = append(out, newCaseView(c))
	}
	return out
}

// newWorkViews decorates unrated cases with the rater's pending selection.
func newWorkViews(cs []models.Case, wf *rating.Workflow) []caseView {
	out := make([]caseView, 0, len(cs))
	for _, c := range cs {
		v := newCaseView(c)
		e := wf.Entry(c.ID)
		if e.Phase == rating.Rated {
			e = rating.Entry{}
		}
		v.MyScore = e.Score
		v.Phase = e.Phase.String()
		out = append(out, v)
	}
	return out
}

type ledgerView struct {
	Count   int             `json:"count"`
	Mean    float64         `json:"mean"`
	Scale   int             `json:"scale"`
	Ratings []models.Rating `json:"ratings"`
}

func newLedgerView(l state.LedgerState) ledgerView {
	return ledgerView{Count: l.Count, Mean: l.Mean, Scale: l.Scale, Ratings: l.Ratings}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
