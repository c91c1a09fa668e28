package api

import (
	"encoding/json"
	"net/http"

	"casedesk/internal/middleware"
	"casedesk/internal/ops"
	"casedesk/internal/util"
)

func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	// AttachClient already confirmed a freshly built client.
	if c.Store.Snapshot().Session.IsAuthenticated() && r.URL.Query().Get("refresh") == "1" {
		c.Ops.CheckAuthStatus(r.Context())
	}
	util.WriteJSON(w, 200, newSessionView(c.Store.Snapshot().Session))
}

func (h *Handlers) Notifications(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, 200, map[string]any{"notifications": client(r).Queue.Drain()})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	c := client(r)
	res, err := c.Ops.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	h.limiter.Reset("login", middleware.ClientIP(r, h.cfg.TrustProxy))
	c.Workflow.Reset()
	util.WriteJSON(w, 200, map[string]any{"user": res.User, "landing": res.Landing})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	c := client(r)
	res, err := c.Ops.Register(r.Context(), ops.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	c.Workflow.Reset()
	util.WriteJSON(w, 201, map[string]any{"user": res.User, "landing": res.Landing})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	c := client(r)
	c.Logout(r.Context())
	util.WriteJSON(w, 200, newSessionView(c.Store.Snapshot().Session))
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	if err := client(r).Ops.ForgotPassword(r.Context(), req.Email); err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 202, map[string]string{"status": "sent"})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid json")
		return
	}
	if err := client(r).Ops.ResetPassword(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		writeOpError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "reset"})
}
