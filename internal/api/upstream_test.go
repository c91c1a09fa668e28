package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"casedesk/internal/apiclient"
	"casedesk/internal/app"
	"casedesk/internal/config"
	"casedesk/internal/credstore"
	"casedesk/internal/models"
	"casedesk/internal/ops"
	"casedesk/internal/rating"
)

// upstream is an in-memory stand-in for the case API.
type upstream struct {
	mu       sync.Mutex
	users    map[string]models.User // by password "email|pw"
	cases    []models.Case
	ratings  map[string][]models.Rating // by user id
	hits     map[string]int
	fail     map[string]int // forced status per "METHOD /path"
	expireAt map[string]bool // tokens the API now rejects
}

func newUpstream() *upstream {
	return &upstream{
		users: map[string]models.User{
			"rae@example.com|pw": {ID: "u1", Email: "rae@example.com", Name: "Rae", Role: models.RoleUser},
			"ada@example.com|pw": {ID: "a1", Email: "ada@example.com", Name: "Ada", Role: models.RoleAdmin},
		},
		cases: []models.Case{
			{ID: "c1", Title: "Knee MRI", Description: "<p>Left knee <script>x()</script></p>", Active: true, TotalRatings: 2, AverageRating: 4},
			{ID: "c2", Title: "Chest X-ray", Description: "<p>PA view</p>", Active: true},
			{ID: "c3", Title: "Ankle", Description: "<p>Lateral</p>", Active: true, TotalRatings: 1, AverageRating: 5},
		},
		ratings:  map[string][]models.Rating{},
		hits:     map[string]int{},
		fail:     map[string]int{},
		expireAt: map[string]bool{},
	}
}

func (u *upstream) hit(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[name]
}

func reply(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status >= 300 {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": data})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func (u *upstream) userFor(r *http.Request) (models.User, bool) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if u.expireAt[tok] {
		return models.User{}, false
	}
	for _, usr := range u.users {
		if "tok-"+usr.ID == tok {
			return usr, true
		}
	}
	return models.User{}, false
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/api")
	key := r.Method + " " + path
	u.hits[key]++
	if st := u.fail[key]; st != 0 {
		reply(w, st, "forced failure")
		return
	}

	if key == "POST /auth/login" {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		usr, ok := u.users[body["email"]+"|"+body["password"]]
		if !ok {
			reply(w, 401, "Invalid credentials")
			return
		}
		reply(w, 200, map[string]any{"user": usr, "token": "tok-" + usr.ID})
		return
	}
	usr, ok := u.userFor(r)
	if !ok {
		reply(w, 401, "Token expired")
		return
	}
	switch {
	case key == "GET /auth/profile":
		reply(w, 200, usr)
	case key == "GET /questions":
		reply(w, 200, map[string]any{"questions": u.cases, "currentPage": 1, "totalPages": 1, "totalItems": len(u.cases)})
	case key == "GET /questions/stats":
		reply(w, 200, models.CaseStats{TotalQuestions: len(u.cases), ActiveQuestions: len(u.cases)})
	case key == "POST /questions":
		_ = r.ParseMultipartForm(32 << 20)
		c := models.Case{ID: "c9", Title: r.FormValue("title"), Description: r.FormValue("description"), Active: true}
		u.cases = append([]models.Case{c}, u.cases...)
		reply(w, 201, c)
	case key == "GET /ratings/user":
		// The API populates the rated case in place of its id.
		out := []map[string]any{}
		for _, rt := range u.ratings[usr.ID] {
			ref := map[string]any{"_id": rt.CaseID}
			for _, c := range u.cases {
				if c.ID == rt.CaseID {
					ref["title"], ref["description"] = c.Title, c.Description
				}
			}
			out = append(out, map[string]any{"questionId": ref, "userId": rt.UserID, "rating": rt.Score})
		}
		reply(w, 200, map[string]any{"ratings": out})
	case key == "POST /ratings":
		var sub apiclient.RatingSubmission
		_ = json.NewDecoder(r.Body).Decode(&sub)
		for _, rt := range u.ratings[usr.ID] {
			if rt.CaseID == sub.QuestionID {
				reply(w, 400, "You have already rated this question")
				return
			}
		}
		u.ratings[usr.ID] = append(u.ratings[usr.ID], models.Rating{CaseID: sub.QuestionID, UserID: usr.ID, Score: sub.Rating})
		reply(w, 201, nil)
	case key == "GET /ratings/stats":
		reply(w, 200, models.RatingStats{TotalRatings: 3, AverageRating: 4.3})
	case key == "GET /admin/users/stats":
		reply(w, 200, models.UserStats{TotalUsers: len(u.users)})
	case key == "GET /admin/users":
		out := []models.Member{}
		for _, x := range u.users {
			out = append(out, models.Member{ID: x.ID, Email: x.Email, Role: x.Role, Active: true})
		}
		reply(w, 200, out)
	default:
		reply(w, 404, "not found: "+key)
	}
}

type fixture struct {
	up     *upstream
	router http.Handler
	reg    *app.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	up := newUpstream()
	ts := httptest.NewServer(up)
	t.Cleanup(ts.Close)

	cfg := config.Config{
		ListenAddr:         ":8080",
		APIBaseURL:         ts.URL + "/api",
		SessionCookieName:  "casedesk_client",
		CSRFCookieName:     "casedesk_csrf",
		SessionIdleMinutes: 30,
		ClientCookieDays:   1,
		RatingScaleMax:     5,
		MaxImageBytes:      5 << 20,
		MaxImages:          5,
		PageSize:           10,
		NotifyQueueSize:    20,
	}
	api := apiclient.NewWithHTTPClient(cfg.APIBaseURL, ts.Client())
	storages := map[string]*credstore.Memory{}
	var mu sync.Mutex
	reg := app.NewRegistry(api, func(id string) credstore.Storage {
		mu.Lock()
		defer mu.Unlock()
		if storages[id] == nil {
			storages[id] = credstore.NewMemory()
		}
		return storages[id]
	}, app.Options{
		PageSize:  cfg.PageSize,
		Scale:     rating.Scale{Max: cfg.RatingScaleMax},
		Images:    ops.ImageLimits{MaxBytes: cfg.MaxImageBytes, MaxCount: cfg.MaxImages},
		QueueSize: cfg.NotifyQueueSize,
		Idle:      time.Hour,
	})
	return &fixture{up: up, router: NewRouter(cfg, reg, nil), reg: reg}
}
