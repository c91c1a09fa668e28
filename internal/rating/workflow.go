package rating

import (
	"context"
	"sync"
)

type Phase int

const (
	Unrated Phase = iota
	ScoreSelected
	Submitting
	Rated
)

func (p Phase) String() string {
	switch p {
	case Unrated:
		return "unrated"
	case ScoreSelected:
		return "score_selected"
	case Submitting:
		return "submitting"
	case Rated:
		return "rated"
	}
	return "unknown"
}

type Entry struct {
	Phase Phase `json:"-"`
	Score int   `json:"score"`
}

// Workflow tracks the rating state machine for every case one rater touches.
type Workflow struct {
	mu      sync.Mutex
	scale   Scale
	entries map[string]Entry
}

func NewWorkflow(scale Scale) *Workflow {
	return &Workflow{scale: scale, entries: map[string]Entry{}}
}

func (w *Workflow) Scale() Scale { return w.scale }

func (w *Workflow) Entry(caseID string) Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries[caseID]
}

// Select records a score choice. Zero clears the selection.
func (w *Workflow) Select(caseID string, score int) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cur := w.entries[caseID]
	if cur.Phase == Submitting {
		return cur, ErrInFlight
	}
	if score == 0 {
		cur = Entry{Phase: Unrated}
		if w.entries[caseID].Phase == Rated {
			cur.Phase = Rated
		}
		w.entries[caseID] = cur
		return cur, nil
	}
	if err := w.scale.Validate(score); err != nil {
		return cur, err
	}
	cur = Entry{Phase: ScoreSelected, Score: score}
	w.entries[caseID] = cur
	return cur, nil
}

// Submit sends the selected score through send. Guards fail without calling
// send. On failure the case returns to ScoreSelected with its score kept.
func (w *Workflow) Submit(ctx context.Context, caseID, userID string, send func(ctx context.Context, score int) error) (Entry, error) {
	w.mu.Lock()
	cur := w.entries[caseID]
	switch {
	case cur.Phase == Submitting:
		w.mu.Unlock()
		return cur, ErrInFlight
	case cur.Score == 0:
		w.mu.Unlock()
		return cur, ErrMissingScore
	case userID == "":
		w.mu.Unlock()
		return cur, ErrUnauthenticated
	}
	cur.Phase = Submitting
	w.entries[caseID] = cur
	w.mu.Unlock()

	err := send(ctx, cur.Score)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		cur.Phase = ScoreSelected
	} else {
		cur.Phase = Rated
	}
	w.entries[caseID] = cur
	return cur, err
}

// Forget returns a case to Unrated, e.g. after its rating was deleted.
func (w *Workflow) Forget(caseID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, caseID)
}

func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = map[string]Entry{}
}
