package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"casedesk/internal/credstore"
	"casedesk/internal/models"
)

// Resource names a server-backed piece of state with its own request
// generation.
type Resource string

const (
	ResQuestions    Resource = "questions"
	ResQuestion     Resource = "question"
	ResQuestionStat Resource = "question_stats"
	ResRatings      Resource = "ratings"
	ResRatingStats  Resource = "rating_stats"
	ResUsers        Resource = "users"
	ResUserStats    Resource = "user_stats"
	ResUserDetail   Resource = "user_detail"
	ResActivities   Resource = "activities"
	ResProfile      Resource = "profile"
)

var allResources = []Resource{
	ResQuestions, ResQuestion, ResQuestionStat, ResRatings, ResRatingStats,
	ResUsers, ResUserStats, ResUserDetail, ResActivities, ResProfile,
}

// Ticket identifies one in-flight request. A response may be committed only
// while its ticket is still the newest for the resource.
type Ticket struct {
	Resource Resource
	Gen      uint64
}

type Snapshot struct {
	Session   SessionState
	Catalog   CatalogState
	Ledger    LedgerState
	Directory DirectoryState
}

type Options struct {
	PageSize  int
	ScaleMax  int
	ClientTag string
}

// Store is the application state of one running client. Reducers never
// mutate slices in place, so a Snapshot stays valid after later dispatches.
type Store struct {
	mu      sync.Mutex
	snap    Snapshot
	gens    map[Resource]uint64
	storage credstore.Storage
	opts    Options
}

func New(storage credstore.Storage, opts Options) *Store {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.ScaleMax <= 0 {
		opts.ScaleMax = 5
	}
	return &Store{
		snap:    initialSnapshot(opts),
		gens:    make(map[Resource]uint64, len(allResources)),
		storage: storage,
		opts:    opts,
	}
}

func initialSnapshot(opts Options) Snapshot {
	return Snapshot{
		Catalog:   InitialCatalog(opts.PageSize),
		Ledger:    InitialLedger(opts.ScaleMax),
		Directory: InitialDirectory(),
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Store) Options() Options { return s.opts }

func (s *Store) DispatchSession(ev SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Session = ReduceSession(s.snap.Session, ev)
}

func (s *Store) DispatchCatalog(ev CatalogEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Catalog = ReduceCatalog(s.snap.Catalog, ev)
}

func (s *Store) DispatchLedger(ev LedgerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLedger(ev)
}

func (s *Store) DispatchDirectory(ev DirectoryEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Directory = ReduceDirectory(s.snap.Directory, ev)
}

func (s *Store) applyLedger(ev LedgerEvent) {
	before := s.snap.Ledger.Reconciled
	s.snap.Ledger = ReduceLedger(s.snap.Ledger, ev)
	if s.snap.Ledger.Reconciled != before {
		log.Printf("ledger_reconciled client=%s event=%T count=%d mean=%.6f", s.opts.ClientTag, ev, s.snap.Ledger.Count, s.snap.Ledger.Mean)
	}
}

// Begin starts a request for r and supersedes every earlier ticket for it.
func (s *Store) Begin(r Resource) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[r]++
	return Ticket{Resource: r, Gen: s.gens[r]}
}

func (s *Store) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[t.Resource] == t.Gen
}

func (s *Store) CommitCatalog(t Ticket, evs ...CatalogEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[t.Resource] != t.Gen {
		return false
	}
	for _, ev := range evs {
		s.snap.Catalog = ReduceCatalog(s.snap.Catalog, ev)
	}
	return true
}

func (s *Store) CommitLedger(t Ticket, evs ...LedgerEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[t.Resource] != t.Gen {
		return false
	}
	for _, ev := range evs {
		s.applyLedger(ev)
	}
	return true
}

func (s *Store) CommitDirectory(t Ticket, evs ...DirectoryEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[t.Resource] != t.Gen {
		return false
	}
	for _, ev := range evs {
		s.snap.Directory = ReduceDirectory(s.snap.Directory, ev)
	}
	return true
}

type Slice int

const (
	SliceSession Slice = iota
	SliceCatalog
	SliceLedger
	SliceDirectory
)

// Mark applies a loading or error event to one slice. With a non-nil ticket
// the event is dropped once the ticket is stale.
func (s *Store) Mark(sl Slice, t *Ticket, ev CommonEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != nil && s.gens[t.Resource] != t.Gen {
		return false
	}
	switch sl {
	case SliceSession:
		s.snap.Session = ReduceSession(s.snap.Session, ev)
	case SliceCatalog:
		s.snap.Catalog = ReduceCatalog(s.snap.Catalog, ev)
	case SliceLedger:
		s.applyLedger(ev)
	case SliceDirectory:
		s.snap.Directory = ReduceDirectory(s.snap.Directory, ev)
	}
	return true
}

// SetCredentials records a confirmed identity and mirrors it to durable
// storage. The in-memory state is updated even when persisting fails.
func (s *Store) SetCredentials(ctx context.Context, user models.User, token string) error {
	s.DispatchSession(CredentialsSet{User: user, Token: token})
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Set(ctx, credstore.KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.Set(ctx, credstore.KeyUser, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

// Logout drops the identity, every identity-bound slice and every in-flight
// ticket, then clears durable storage. Storage errors are returned after the
// in-memory state is already clean.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	loading := s.snap.Session.Loading
	s.snap = initialSnapshot(s.opts)
	s.snap.Session.Loading = loading
	for _, r := range allResources {
		s.gens[r]++
	}
	s.mu.Unlock()

	return errors.Join(
		s.storage.Remove(ctx, credstore.KeyToken),
		s.storage.Remove(ctx, credstore.KeyUser),
	)
}

// Persisted reads the mirrored credential and user. ok is false unless both
// are present and the user record decodes.
func (s *Store) Persisted(ctx context.Context) (user models.User, token string, ok bool, err error) {
	token, hasToken, err := s.storage.Get(ctx, credstore.KeyToken)
	if err != nil {
		return models.User{}, "", false, err
	}
	rawUser, hasUser, err := s.storage.Get(ctx, credstore.KeyUser)
	if err != nil {
		return models.User{}, "", false, err
	}
	if !hasToken || !hasUser || token == "" {
		return models.User{}, "", false, nil
	}
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return models.User{}, "", false, fmt.Errorf("decode persisted user: %w", err)
	}
	return user, token, true, nil
}

// Rehydrate restores identity from durable storage without a network call.
func (s *Store) Rehydrate(ctx context.Context) (bool, error) {
	user, token, ok, err := s.Persisted(ctx)
	if err != nil || !ok {
		return false, err
	}
	s.DispatchSession(CredentialsSet{User: user, Token: token})
	return true, nil
}
