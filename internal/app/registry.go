// Package app keeps one running client (state, operations, rating workflow
// and notification queue) per browser, keyed by an opaque cookie token.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"casedesk/internal/credstore"
	"casedesk/internal/notify"
	"casedesk/internal/ops"
	"casedesk/internal/rating"
	"casedesk/internal/state"
)

type Client struct {
	ID       string
	Store    *state.Store
	Ops      *ops.Ops
	Workflow *rating.Workflow
	Queue    *notify.Queue

	mu       sync.Mutex
	lastSeen time.Time
	checked  sync.Once
}

// Confirm checks the stored identity with the API the first time it is
// called. Concurrent callers block until that check has finished, so no
// request sees the client before its session is known. first reports
// whether this call ran the check.
func (c *Client) Confirm(ctx context.Context) (first bool) {
	c.checked.Do(func() {
		c.Ops.CheckAuthStatus(context.WithoutCancel(ctx))
		first = true
	})
	return first
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Client) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// Logout signs the client out and forgets every in-progress rating.
func (c *Client) Logout(ctx context.Context) {
	c.Ops.LogoutUser(ctx)
	c.Workflow.Reset()
}

type Options struct {
	PageSize  int
	Scale     rating.Scale
	Images    ops.ImageLimits
	QueueSize int
	Idle      time.Duration
}

// StorageFunc returns the durable storage of one client.
type StorageFunc func(clientID string) credstore.Storage

type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
	api     ops.API
	storage StorageFunc
	opts    Options
	lastGC  time.Time
	now     func() time.Time
}

func NewRegistry(api ops.API, storage StorageFunc, opts Options) *Registry {
	if opts.Idle <= 0 {
		opts.Idle = time.Hour
	}
	return &Registry{
		clients: map[string]*Client{},
		api:     api,
		storage: storage,
		opts:    opts,
		lastGC:  time.Now().UTC(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Attach returns the client for raw, building it when this process has not
// seen it yet. created reports a fresh build; callers serving requests run
// Confirm before using it.
func (r *Registry) Attach(raw string) (c *Client, created bool) {
	id := ClientID(raw)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Sub(r.lastGC) > time.Minute {
		r.gcLocked(now)
	}
	if c, ok := r.clients[id]; ok {
		c.touch(now)
		return c, false
	}
	c = r.build(id)
	c.touch(now)
	r.clients[id] = c
	return c, true
}

func (r *Registry) build(id string) *Client {
	tag := id
	if len(tag) > 12 {
		tag = tag[:12]
	}
	queue := notify.NewQueue(r.opts.QueueSize)
	store := state.New(r.storage(id), state.Options{
		PageSize:  r.opts.PageSize,
		ScaleMax:  r.opts.Scale.Max,
		ClientTag: tag,
	})
	n := notify.Multi{queue, notify.LogNotifier{Tag: tag}}
	return &Client{
		ID:       id,
		Store:    store,
		Ops:      ops.New(r.api, store, n, ops.Options{Scale: r.opts.Scale, Images: r.opts.Images}),
		Workflow: rating.NewWorkflow(r.opts.Scale),
		Queue:    queue,
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Registry) gcLocked(now time.Time) {
	dropped := 0
	for id, c := range r.clients {
		if c.idleSince(now) > r.opts.Idle {
			delete(r.clients, id)
			dropped++
		}
	}
	r.lastGC = now
	if dropped > 0 {
		log.Printf("client_gc dropped=%d remaining=%d", dropped, len(r.clients))
	}
}

// Purger removes durable client records not written since cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunJanitor purges stale client storage every interval until ctx ends.
func RunJanitor(ctx context.Context, p Purger, interval, maxAge time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := p.PurgeBefore(ctx, now.UTC().Add(-maxAge))
			if err != nil {
				log.Printf("client storage purge failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("client storage purged rows=%d", n)
			}
		}
	}
}
