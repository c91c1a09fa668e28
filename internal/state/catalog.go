package state

import "casedesk/internal/models"

type CatalogState struct {
	Cases      []models.Case
	Current    *models.Case
	Stats      models.CaseStats
	Pagination models.Pagination
	Filters    models.CaseFilters
	Loading    bool
	Error      string
}

func InitialCatalog(pageSize int) CatalogState {
	return CatalogState{
		Cases:      []models.Case{},
		Pagination: models.Pagination{CurrentPage: 1, TotalPages: 1, ItemsPerPage: pageSize},
		Filters:    models.DefaultCaseFilters(),
	}
}

// CasesReplaced is the result of a list fetch: it replaces the whole list.
type CasesReplaced struct {
	Cases      []models.Case
	Pagination models.Pagination
}

type CurrentCaseSet struct{ Case *models.Case }
type CaseAdded struct{ Case models.Case }
type CaseUpdated struct{ Case models.Case }
type CaseRemoved struct{ ID string }
type CaseStatsSet struct{ Stats models.CaseStats }

// FiltersSet always takes Search; the other fields replace the active
// filters only when set.
type FiltersSet struct{ Filters models.CaseFilters }
type FiltersReset struct{}

func (CasesReplaced) catalogEvent()  {}
func (CurrentCaseSet) catalogEvent() {}
func (CaseAdded) catalogEvent()      {}
func (CaseUpdated) catalogEvent()    {}
func (CaseRemoved) catalogEvent()    {}
func (CaseStatsSet) catalogEvent()   {}
func (FiltersSet) catalogEvent()     {}
func (FiltersReset) catalogEvent()   {}

func ReduceCatalog(s CatalogState, ev CatalogEvent) CatalogState {
	switch e := ev.(type) {
	case CasesReplaced:
		s.Cases = append([]models.Case{}, e.Cases...)
		p := s.Pagination
		p.CurrentPage = e.Pagination.CurrentPage
		p.TotalPages = e.Pagination.TotalPages
		p.TotalItems = e.Pagination.TotalItems
		if e.Pagination.ItemsPerPage > 0 {
			p.ItemsPerPage = e.Pagination.ItemsPerPage
		}
		s.Pagination = p
	case CurrentCaseSet:
		if e.Case == nil {
			s.Current = nil
		} else {
			c := *e.Case
			s.Current = &c
		}
	case CaseAdded:
		out := make([]models.Case, 0, len(s.Cases)+1)
		out = append(out, e.Case)
		s.Cases = append(out, s.Cases...)
		s.Stats.TotalQuestions++
		if e.Case.Active {
			s.Stats.ActiveQuestions++
		}
	case CaseUpdated:
		idx := indexOfCase(s.Cases, e.Case.ID)
		if idx >= 0 {
			if s.Cases[idx].Active != e.Case.Active {
				if e.Case.Active {
					s.Stats.ActiveQuestions++
				} else {
					s.Stats.ActiveQuestions--
				}
			}
			out := append([]models.Case{}, s.Cases...)
			out[idx] = e.Case
			s.Cases = out
		}
		if s.Current != nil && s.Current.ID == e.Case.ID {
			c := e.Case
			s.Current = &c
		}
	case CaseRemoved:
		idx := indexOfCase(s.Cases, e.ID)
		if idx < 0 {
			return s
		}
		removed := s.Cases[idx]
		out := make([]models.Case, 0, len(s.Cases)-1)
		out = append(out, s.Cases[:idx]...)
		s.Cases = append(out, s.Cases[idx+1:]...)
		s.Stats.TotalQuestions--
		if removed.Active {
			s.Stats.ActiveQuestions--
		}
		if s.Current != nil && s.Current.ID == e.ID {
			s.Current = nil
		}
	case CaseStatsSet:
		s.Stats = e.Stats
	case FiltersSet:
		f := s.Filters
		f.Search = e.Filters.Search
		if e.Filters.Status != "" {
			f.Status = e.Filters.Status
		}
		if e.Filters.SortBy != "" {
			f.SortBy = e.Filters.SortBy
		}
		if e.Filters.SortOrder != "" {
			f.SortOrder = e.Filters.SortOrder
		}
		s.Filters = f
	case FiltersReset:
		s.Filters = models.DefaultCaseFilters()
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

func indexOfCase(cases []models.Case, id string) int {
	for i := range cases {
		if cases[i].ID == id {
			return i
		}
	}
	return -1
}
