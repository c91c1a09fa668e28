package state

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"casedesk/internal/models"
	"casedesk/internal/sanitize"
)

// Worklist is every loaded case the current user has no rating for. It is
// derived on read and never stored.
func Worklist(s Snapshot) []models.Case {
	out := make([]models.Case, 0, len(s.Catalog.Cases))
	for _, c := range s.Catalog.Cases {
		if !s.Ledger.Has(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

// ScoreFor returns the current user's score for caseID, or 0.
func ScoreFor(s Snapshot, caseID string) int {
	return s.Ledger.ByCase[caseID].Score
}

// Search keeps the cases whose title or description text contains term,
// compared under Unicode case folding.
func Search(in []models.Case, term string) []models.Case {
	term = strings.TrimSpace(term)
	if term == "" {
		return in
	}
	fold := cases.Fold()
	needle := fold.String(term)
	out := make([]models.Case, 0, len(in))
	for _, c := range in {
		if strings.Contains(fold.String(c.Title), needle) ||
			strings.Contains(fold.String(sanitize.PlainText(c.Description)), needle) {
			out = append(out, c)
		}
	}
	return out
}

// Page slices in to the 1-based page of size limit.
func Page(in []models.Case, page, limit int) ([]models.Case, models.Pagination) {
	if limit <= 0 {
		limit = 10
	}
	total := len(in)
	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	p := models.Pagination{CurrentPage: page, TotalPages: pages, TotalItems: total, ItemsPerPage: limit}
	start := (page - 1) * limit
	if start >= total {
		return []models.Case{}, p
	}
	end := start + limit
	if end > total {
		end = total
	}
	return append([]models.Case{}, in[start:end]...), p
}

var titleCaser = cases.Title(language.English)

// RoleLabel renders a role for dashboards.
func RoleLabel(r models.Role) string {
	return titleCaser.String(string(r))
}

// Analytics is the admin overview computed from the loaded cases together
// with the server's user and rating stats.
type Analytics struct {
	TotalUsers      int                `json:"totalUsers"`
	TotalCases      int                `json:"totalCases"`
	ActiveCases     int                `json:"activeCases"`
	TotalRatings    int                `json:"totalRatings"`
	AverageRating   float64            `json:"averageRating"`
	CasesToday      int                `json:"casesToday"`
	CompletionRate  float64            `json:"completionRate"`
	TopRated        []models.Case      `json:"topRated"`
	PlatformRatings models.RatingStats `json:"platformRatings"`
}

func Analyze(s Snapshot, now time.Time) Analytics {
	cs := s.Catalog.Cases
	out := Analytics{
		TotalUsers:      s.Directory.Stats.TotalUsers,
		TotalCases:      len(cs),
		PlatformRatings: s.Ledger.Platform,
		TopRated:        []models.Case{},
	}
	if len(cs) == 0 {
		return out
	}
	y, m, d := now.Date()
	rated, sumAvg := 0, 0.0
	for _, c := range cs {
		if c.Active {
			out.ActiveCases++
		}
		out.TotalRatings += c.TotalRatings
		sumAvg += c.AverageRating
		if c.TotalRatings > 0 {
			rated++
		}
		cy, cm, cd := c.CreatedAt.In(now.Location()).Date()
		if cy == y && cm == m && cd == d {
			out.CasesToday++
		}
	}
	out.AverageRating = sumAvg / float64(len(cs))
	out.CompletionRate = float64(rated) / float64(len(cs)) * 100

	top := append([]models.Case{}, cs...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].AverageRating > top[j].AverageRating })
	if len(top) > 5 {
		top = top[:5]
	}
	out.TopRated = top
	return out
}
