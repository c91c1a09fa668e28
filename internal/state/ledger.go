package state

import (
	"math"

	"casedesk/internal/models"
)

// MeanTolerance bounds how far the running mean may drift from a full
// recomputation before it is replaced by the recomputed value.
const MeanTolerance = 1e-9

// LedgerState holds the current user's confirmed ratings. Count and Mean are
// maintained incrementally; Platform carries the server's global stats.
type LedgerState struct {
	Ratings    []models.Rating
	ByCase     map[string]models.Rating
	Count      int
	Mean       float64
	Scale      int
	Platform   models.RatingStats
	Reconciled int
	Loading    bool
	Error      string
}

func InitialLedger(scale int) LedgerState {
	return LedgerState{Ratings: []models.Rating{}, ByCase: map[string]models.Rating{}, Scale: scale}
}

func (s LedgerState) Has(caseID string) bool {
	_, ok := s.ByCase[caseID]
	return ok
}

// RatingsReplaced is the result of a ledger fetch.
type RatingsReplaced struct{ Ratings []models.Rating }

// RatingAdded records a server-confirmed submission. A second rating for a
// case already in the ledger is treated as an update.
type RatingAdded struct{ Rating models.Rating }

type RatingUpdated struct {
	CaseID string
	Score  int
}

type RatingDeleted struct{ CaseID string }
type PlatformStatsSet struct{ Stats models.RatingStats }

func (RatingsReplaced) ledgerEvent()  {}
func (RatingAdded) ledgerEvent()      {}
func (RatingUpdated) ledgerEvent()    {}
func (RatingDeleted) ledgerEvent()    {}
func (PlatformStatsSet) ledgerEvent() {}

func ReduceLedger(s LedgerState, ev LedgerEvent) LedgerState {
	switch e := ev.(type) {
	case RatingsReplaced:
		s.Ratings = dedupeByCase(e.Ratings)
		s.ByCase = indexRatings(s.Ratings)
		s.Count, s.Mean = Recompute(s.Ratings)
	case RatingAdded:
		if old, ok := s.ByCase[e.Rating.CaseID]; ok {
			return ReduceLedger(s, RatingUpdated{CaseID: old.CaseID, Score: e.Rating.Score})
		}
		n := float64(s.Count)
		s.Mean = (s.Mean*n + float64(e.Rating.Score)) / (n + 1)
		s.Count++
		s.Ratings = append(append([]models.Rating{}, s.Ratings...), e.Rating)
		s.ByCase = indexRatings(s.Ratings)
		s = reconcile(s)
	case RatingUpdated:
		old, ok := s.ByCase[e.CaseID]
		if !ok {
			return s
		}
		sum := s.Mean*float64(s.Count) - float64(old.Score) + float64(e.Score)
		s.Mean = sum / float64(s.Count)
		out := append([]models.Rating{}, s.Ratings...)
		for i := range out {
			if out[i].CaseID == e.CaseID {
				out[i].Score = e.Score
			}
		}
		s.Ratings = out
		s.ByCase = indexRatings(out)
		s = reconcile(s)
	case RatingDeleted:
		old, ok := s.ByCase[e.CaseID]
		if !ok {
			return s
		}
		sum := s.Mean*float64(s.Count) - float64(old.Score)
		s.Count--
		if s.Count == 0 {
			s.Mean = 0
		} else {
			s.Mean = sum / float64(s.Count)
		}
		out := make([]models.Rating, 0, len(s.Ratings))
		for _, r := range s.Ratings {
			if r.CaseID != e.CaseID {
				out = append(out, r)
			}
		}
		s.Ratings = out
		s.ByCase = indexRatings(out)
		s = reconcile(s)
	case PlatformStatsSet:
		s.Platform = e.Stats
	case Loading:
		s.Loading = e.On
	case Failed:
		s.Error = e.Message
		s.Loading = false
	case ErrorCleared:
		s.Error = ""
	}
	return s
}

// Recompute derives count and mean from scratch.
func Recompute(ratings []models.Rating) (int, float64) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Score
	}
	return len(ratings), float64(sum) / float64(len(ratings))
}

func reconcile(s LedgerState) LedgerState {
	n, mean := Recompute(s.Ratings)
	if n != s.Count || math.Abs(mean-s.Mean) > MeanTolerance {
		s.Count, s.Mean = n, mean
		s.Reconciled++
	}
	return s
}

func indexRatings(ratings []models.Rating) map[string]models.Rating {
	out := make(map[string]models.Rating, len(ratings))
	for _, r := range ratings {
		out[r.CaseID] = r
	}
	return out
}

// dedupeByCase keeps the last rating seen for each case, in first-seen order.
func dedupeByCase(in []models.Rating) []models.Rating {
	pos := make(map[string]int, len(in))
	out := make([]models.Rating, 0, len(in))
	for _, r := range in {
		if i, ok := pos[r.CaseID]; ok {
			out[i] = r
			continue
		}
		pos[r.CaseID] = len(out)
		out = append(out, r)
	}
	return out
}
