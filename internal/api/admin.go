package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"casedesk/internal/apiclient"
	"casedesk/internal/models"
	"casedesk/internal/ops"
	"casedesk/internal/state"
	"casedesk/internal/util"
)

const analyticsCaseLimit = 100

func (h *Handlers) AdminListCases(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	q := r.URL.Query()
	if q.Get("reset") == "1" {
		c.Ops.ResetFilters()
	} else if q.Has("search") || q.Has("status") || q.Has("sortBy") || q.Has("sortOrder") {
		c.Ops.SetFilters(models.CaseFilters{
			Search:    q.Get("search"),
			Status:    q.Get("status"),
			SortBy:    q.Get("sortBy"),
			SortOrder: q.Get("sortOrder"),
		})
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > analyticsCaseLimit {
		limit = h.cfg.PageSize
	}
	if _, err := c.Ops.FetchQuestions(r.Context(), c.Store.Snapshot().Catalog.Filters, page, limit); err != nil {
		writeOpError(w, r, err)
		return
	}
	if _, err := c.Ops.FetchQuestionStats(r.Context()); err != nil {
		writeOpError(w, r, err)
		return
	}
	cat := c.Store.Snapshot().Catalog
	util.WriteJSON(w, 200, map[string]any{
		"cases":      newCaseViews(cat.Cases),
		"pagination": cat.Pagination,
		"filters":    cat.Filters,
		"stats":      cat.Stats,
	})
}

func (h *Handlers) AdminGetCase(w http.ResponseWriter, r *http.Request) {
	cs, err := client(r).Ops.FetchQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, newCaseView(cs))
}

func (h *Handlers) AdminCreateCase(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeCaseForm(w, r)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	cs, err := client(r).Ops.CreateQuestion(r.Context(), in)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 201, newCaseView(cs))
}

func (h *Handlers) AdminUpdateCase(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeCaseForm(w, r)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	cs, err := client(r).Ops.UpdateQuestion(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, newCaseView(cs))
}

func (h *Handlers) AdminDeleteCase(w http.ResponseWriter, r *http.Request) {
	if err := client(r).Ops.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeOpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AdminSetCaseStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeBadRequest(w, r, "active is required")
		return
	}
	cs, err := client(r).Ops.SetQuestionStatus(r.Context(), chi.URLParam(r, "id"), *req.Active)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, newCaseView(cs))
}

// AdminAnalytics loads cases, user stats and rating stats concurrently.
// Each load writes its own part of the state, so the three never contend.
func (h *Handlers) AdminAnalytics(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	ctx := r.Context()
	filters := c.Store.Snapshot().Catalog.Filters

	var g errgroup.Group
	g.Go(func() error {
		_, err := c.Ops.FetchQuestions(ctx, filters, 1, analyticsCaseLimit)
		return err
	})
	g.Go(func() error {
		_, err := c.Ops.FetchUserStats(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.Ops.FetchRatingStats(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeOpError(w, r, err)
		return
	}
	a := state.Analyze(c.Store.Snapshot(), time.Now())
	util.WriteJSON(w, 200, map[string]any{
		"totalUsers":      a.TotalUsers,
		"totalCases":      a.TotalCases,
		"activeCases":     a.ActiveCases,
		"totalRatings":    a.TotalRatings,
		"averageRating":   a.AverageRating,
		"casesToday":      a.CasesToday,
		"completionRate":  a.CompletionRate,
		"topRated":        newCaseViews(a.TopRated),
		"platformRatings": a.PlatformRatings,
	})
}

func (h *Handlers) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	var g errgroup.Group
	g.Go(func() error {
		_, err := c.Ops.FetchUsers(r.Context())
		return err
	})
	g.Go(func() error {
		_, err := c.Ops.FetchUserStats(r.Context())
		return err
	})
	if err := g.Wait(); err != nil {
		writeOpError(w, r, err)
		return
	}
	dir := c.Store.Snapshot().Directory
	util.WriteJSON(w, 200, map[string]any{"users": dir.Users, "stats": dir.Stats})
}

func (h *Handlers) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := client(r).Ops.FetchUserDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, u)
}

func (h *Handlers) AdminUserActivities(w http.ResponseWriter, r *http.Request) {
	acts, err := client(r).Ops.FetchUserActivities(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	if acts == nil {
		acts = []models.Activity{}
	}
	util.WriteJSON(w, 200, map[string]any{"activities": acts})
}

func (h *Handlers) AdminSetUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	u, err := client(r).Ops.UpdateUserRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, u)
}

func (h *Handlers) AdminDeactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := client(r).Ops.DeactivateUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeOpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeCaseForm reads a multipart case form. Files are read up to one byte
// past the per-image limit so the size check in ops sees oversized images.
func (h *Handlers) decodeCaseForm(w http.ResponseWriter, r *http.Request) (ops.CaseInput, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return ops.CaseInput{}, fmt.Errorf("expected multipart/form-data")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxCaseUploadBytes)
	if err := r.ParseMultipartForm(maxCaseUploadBytes); err != nil {
		return ops.CaseInput{}, fmt.Errorf("invalid form: %v", err)
	}
	in := ops.CaseInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if raw := r.FormValue("existingImages"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Retained); err != nil {
			return ops.CaseInput{}, fmt.Errorf("existingImages must be a JSON array")
		}
	}
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return ops.CaseInput{}, fmt.Errorf("read %s: %v", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxImageBytes+1))
		_ = f.Close()
		if err != nil {
			return ops.CaseInput{}, fmt.Errorf("read %s: %v", fh.Filename, err)
		}
		in.Images = append(in.Images, apiclient.Image{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return in, nil
}
