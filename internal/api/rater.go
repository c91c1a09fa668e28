package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"casedesk/internal/ops"
	"casedesk/internal/state"
	"casedesk/internal/util"
)

func (h *Handlers) UserDashboard(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	if _, err := c.Ops.FetchUserRatings(r.Context()); err != nil {
		writeOpError(w, r, err)
		return
	}
	if _, err := c.Ops.FetchQuestions(r.Context(), c.Store.Snapshot().Catalog.Filters, 1, h.cfg.PageSize); err != nil {
		writeOpError(w, r, err)
		return
	}
	snap := c.Store.Snapshot()
	recent := snap.Ledger.Ratings
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	util.WriteJSON(w, 200, map[string]any{
		"user":    snap.Session.User,
		"rated":   snap.Ledger.Count,
		"unrated": len(state.Worklist(snap)),
		"mean":    snap.Ledger.Mean,
		"scale":   snap.Ledger.Scale,
		"recent":  recent,
		"loading": snap.Catalog.Loading || snap.Ledger.Loading,
		"catalog": snap.Catalog.Pagination,
	})
}

// Worklist loads the page of cases and the rater's ledger, then narrows to
// unrated cases matching the local search term.
func (h *Handlers) Worklist(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if _, err := c.Ops.FetchUserRatings(r.Context()); err != nil {
		writeOpError(w, r, err)
		return
	}
	if _, err := c.Ops.FetchQuestions(r.Context(), c.Store.Snapshot().Catalog.Filters, page, h.cfg.PageSize); err != nil {
		writeOpError(w, r, err)
		return
	}
	snap := c.Store.Snapshot()
	work := state.Search(state.Worklist(snap), q.Get("search"))
	util.WriteJSON(w, 200, map[string]any{
		"cases":      newWorkViews(work, c.Workflow),
		"remaining":  len(state.Worklist(snap)),
		"pagination": snap.Catalog.Pagination,
		"scale":      c.Workflow.Scale().Max,
	})
}

func (h *Handlers) SelectScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	id := chi.URLParam(r, "id")
	e, err := client(r).Workflow.Select(id, req.Score)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"caseId": id, "score": e.Score, "phase": e.Phase.String()})
}

// SubmitScore sends the selected score, then refreshes cases and ratings in
// that order so the worklist reflects the server.
func (h *Handlers) SubmitScore(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	id := chi.URLParam(r, "id")
	uid := c.Store.Snapshot().Session.UserID()
	e, err := c.Workflow.Submit(r.Context(), id, uid, func(ctx context.Context, score int) error {
		return c.Ops.SubmitRating(ctx, id, score)
	})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	snap := c.Store.Snapshot()
	if _, err := c.Ops.FetchQuestions(r.Context(), snap.Catalog.Filters, snap.Catalog.Pagination.CurrentPage, h.cfg.PageSize); err == nil {
		_, _ = c.Ops.FetchUserRatings(r.Context())
	}
	snap = c.Store.Snapshot()
	util.WriteJSON(w, 200, map[string]any{
		"caseId":    id,
		"score":     e.Score,
		"phase":     e.Phase.String(),
		"ledger":    newLedgerView(snap.Ledger),
		"remaining": len(state.Worklist(snap)),
	})
}

func (h *Handlers) UserRatings(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	if _, err := c.Ops.FetchUserRatings(r.Context()); err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, newLedgerView(c.Store.Snapshot().Ledger))
}

func (h *Handlers) UpdateRating(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	c := client(r)
	if err := c.Ops.UpdateRating(r.Context(), chi.URLParam(r, "caseId"), req.Score); err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, newLedgerView(c.Store.Snapshot().Ledger))
}

func (h *Handlers) DeleteRating(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	id := chi.URLParam(r, "caseId")
	if err := c.Ops.DeleteRating(r.Context(), id); err != nil {
		writeOpError(w, r, err)
		return
	}
	c.Workflow.Forget(id)
	util.WriteJSON(w, 200, newLedgerView(c.Store.Snapshot().Ledger))
}

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, 200, newSessionView(client(r).Store.Snapshot().Session))
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	c := client(r)
	if _, err := c.Ops.UpdateProfile(r.Context(), ops.ProfileInput{Name: req.Name, Email: req.Email}); err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, newSessionView(c.Store.Snapshot().Session))
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	if err := client(r).Ops.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "changed"})
}
