// Package rating holds the rating scale and the per-case submission
// workflow a rater walks through.
package rating

import (
	"errors"
	"fmt"

	"casedesk/internal/models"
)

var (
	ErrMissingScore    = errors.New("select a rating before submitting")
	ErrUnauthenticated = errors.New("sign in to submit ratings")
	ErrOutOfScale      = errors.New("rating is outside the configured scale")
	ErrInFlight        = errors.New("a submission for this case is already in progress")
)

// Scale is the set of allowed scores, 1..Max.
type Scale struct {
	Max int
}

func NewScale(max int) (Scale, error) {
	if max != 5 && max != 10 {
		return Scale{}, fmt.Errorf("unsupported rating scale 1..%d", max)
	}
	return Scale{Max: max}, nil
}

func (s Scale) Validate(score int) error {
	if score < 1 || score > s.Max {
		return fmt.Errorf("%w: %d not in 1..%d", ErrOutOfScale, score, s.Max)
	}
	return nil
}

// Conforms reports the first rating whose score falls outside the scale.
func (s Scale) Conforms(ratings []models.Rating) error {
	for _, r := range ratings {
		if err := s.Validate(r.Score); err != nil {
			return fmt.Errorf("case %s: %w", r.CaseID, err)
		}
	}
	return nil
}
