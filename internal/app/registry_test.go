package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"casedesk/internal/credstore"
	"casedesk/internal/models"
	"casedesk/internal/ops"
	"casedesk/internal/rating"
)

type memStorages struct {
	mu sync.Mutex
	m  map[string]*credstore.Memory
}

func (s *memStorages) get(id string) credstore.Storage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]*credstore.Memory{}
	}
	if _, ok := s.m[id]; !ok {
		s.m[id] = credstore.NewMemory()
	}
	return s.m[id]
}

func newRegistry(t *testing.T, idle time.Duration) (*Registry, *memStorages) {
	t.Helper()
	st := &memStorages{}
	reg := NewRegistry(nil, st.get, Options{PageSize: 10, Scale: rating.Scale{Max: 5}, Images: ops.DefaultImageLimits(), QueueSize: 5, Idle: idle})
	return reg, st
}

func TestClientTokenRoundTrip(t *testing.T) {
	raw, id, err := NewClientToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !ValidToken(raw) || ClientID(raw) != id || len(id) != 64 {
		t.Fatalf("unexpected token/id: %q %q", raw, id)
	}
	if ValidToken("short") || ValidToken("") {
		t.Fatalf("expected junk tokens to be rejected")
	}
}

func TestAttachReusesClient(t *testing.T) {
	reg, _ := newRegistry(t, time.Hour)
	raw, _, _ := NewClientToken()
	a, created := reg.Attach(raw)
	if !created {
		t.Fatalf("expected first attach to build a client")
	}
	b, created := reg.Attach(raw)
	if created || a != b {
		t.Fatalf("expected the same client on second attach")
	}
	other, _, _ := NewClientToken()
	c, _ := reg.Attach(other)
	if c == a || c.Store == a.Store {
		t.Fatalf("clients must not share state")
	}
}

func TestIdleClientsCollected(t *testing.T) {
	reg, st := newRegistry(t, time.Minute)
	clock := time.Now().UTC()
	reg.now = func() time.Time { return clock }

	raw, _, _ := NewClientToken()
	c, _ := reg.Attach(raw)
	_ = st.get(c.ID).Set(context.Background(), credstore.KeyToken, "tok")

	clock = clock.Add(5 * time.Minute)
	other, _, _ := NewClientToken()
	reg.Attach(other)
	if reg.Len() != 1 {
		t.Fatalf("expected idle client to be dropped, have %d", reg.Len())
	}
	again, created := reg.Attach(raw)
	if !created || again == c {
		t.Fatalf("expected a rebuilt client")
	}
	if ok, _ := again.Store.Rehydrate(context.Background()); ok {
		t.Fatalf("token without user must not rehydrate")
	}
}

type countingPurger struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPurger) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return 1, nil
}

func (p *countingPurger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	p := &countingPurger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, p, 5*time.Millisecond, time.Hour)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for p.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor did not stop")
	}
	if p.count() == 0 {
		t.Fatalf("expected at least one purge")
	}
}

// slowProfile holds the profile call until release is closed. Only Profile
// is reachable from CheckAuthStatus.
type slowProfile struct {
	ops.API
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (s *slowProfile) Profile(ctx context.Context, token string) (models.User, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	close(s.entered)
	<-s.release
	return models.User{ID: "u1", Email: "rae@example.com", Role: models.RoleUser}, nil
}

func TestConfirmBlocksConcurrentFirstRequests(t *testing.T) {
	api := &slowProfile{entered: make(chan struct{}), release: make(chan struct{})}
	st := &memStorages{}
	reg := NewRegistry(api, st.get, Options{PageSize: 10, Scale: rating.Scale{Max: 5}, QueueSize: 5, Idle: time.Hour})

	raw, id, _ := NewClientToken()
	user, _ := json.Marshal(models.User{ID: "u1", Role: models.RoleUser})
	_ = st.get(id).Set(context.Background(), credstore.KeyToken, "tok")
	_ = st.get(id).Set(context.Background(), credstore.KeyUser, string(user))

	c, created := reg.Attach(raw)
	if !created {
		t.Fatalf("expected a new client")
	}
	firstDone := make(chan bool)
	go func() { firstDone <- c.Confirm(context.Background()) }()
	<-api.entered

	same, _ := reg.Attach(raw)
	secondDone := make(chan bool)
	go func() { secondDone <- same.Confirm(context.Background()) }()
	select {
	case <-secondDone:
		t.Fatalf("second request must wait for the identity check")
	case <-time.After(50 * time.Millisecond):
	}

	close(api.release)
	if !<-firstDone || <-secondDone {
		t.Fatalf("expected exactly the first caller to run the check")
	}
	if !same.Store.Snapshot().Session.IsAuthenticated() {
		t.Fatalf("expected the stored identity to be confirmed")
	}
	if c.Confirm(context.Background()) || api.calls != 1 {
		t.Fatalf("expected a single profile check, got %d", api.calls)
	}
}
