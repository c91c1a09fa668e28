package ops

import (
	"context"
	"strings"

	"casedesk/internal/apiclient"
	"casedesk/internal/models"
	"casedesk/internal/notify"
	"casedesk/internal/sanitize"
	"casedesk/internal/state"
)

type CaseInput struct {
	Title       string
	Description string
	Images      []apiclient.Image
	// Retained lists stored image references kept on an edit.
	Retained []string
}

// FetchQuestions replaces the loaded page of cases. A response that arrives
// after a newer fetch was started is dropped.
func (o *Ops) FetchQuestions(ctx context.Context, filters models.CaseFilters, page, limit int) (models.CasePage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = o.store.Options().PageSize
	}
	t := o.store.Begin(state.ResQuestions)
	done := o.start(state.SliceCatalog, &t)
	defer done()

	pg, err := o.api.ListQuestions(ctx, o.token(), apiclient.CaseQuery{Page: page, Limit: limit, Filters: filters})
	if err != nil {
		return models.CasePage{}, o.fail(ctx, state.SliceCatalog, &t, err, "Error fetching questions")
	}
	o.store.CommitCatalog(t, state.CasesReplaced{
		Cases: pg.Questions,
		Pagination: models.Pagination{
			CurrentPage:  pg.CurrentPage,
			TotalPages:   pg.TotalPages,
			TotalItems:   pg.TotalItems,
			ItemsPerPage: limit,
		},
	})
	return pg, nil
}

func (o *Ops) FetchQuestion(ctx context.Context, id string) (models.Case, error) {
	t := o.store.Begin(state.ResQuestion)
	done := o.start(state.SliceCatalog, &t)
	defer done()

	c, err := o.api.GetQuestion(ctx, o.token(), id)
	if err != nil {
		return models.Case{}, o.fail(ctx, state.SliceCatalog, &t, err, "Error fetching question")
	}
	o.store.CommitCatalog(t, state.CurrentCaseSet{Case: &c})
	return c, nil
}

func (o *Ops) FetchQuestionStats(ctx context.Context) (models.CaseStats, error) {
	t := o.store.Begin(state.ResQuestionStat)
	done := o.start(state.SliceCatalog, &t)
	defer done()

	st, err := o.api.QuestionStats(ctx, o.token())
	if err != nil {
		return models.CaseStats{}, o.fail(ctx, state.SliceCatalog, &t, err, "Error fetching question statistics")
	}
	o.store.CommitCatalog(t, state.CaseStatsSet{Stats: st})
	return st, nil
}

func (o *Ops) validateCase(in CaseInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title is required")
	}
	if strings.TrimSpace(sanitize.PlainText(in.Description)) == "" {
		return invalid("description is required")
	}
	return o.images.validateImages(len(in.Retained), in.Images)
}

func (o *Ops) CreateQuestion(ctx context.Context, in CaseInput) (models.Case, error) {
	if err := o.validateCase(CaseInput{Title: in.Title, Description: in.Description, Images: in.Images}); err != nil {
		return models.Case{}, o.reject(state.SliceCatalog, err)
	}
	done := o.start(state.SliceCatalog, nil)
	defer done()

	c, err := o.api.CreateQuestion(ctx, o.token(), apiclient.CaseUpload{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Images:      in.Images,
	})
	if err != nil {
		return models.Case{}, o.fail(ctx, state.SliceCatalog, nil, err, "Error creating question")
	}
	o.store.DispatchCatalog(state.CaseAdded{Case: c})
	notify.Success(o.notifier, "Question created successfully")
	return c, nil
}

func (o *Ops) UpdateQuestion(ctx context.Context, id string, in CaseInput) (models.Case, error) {
	if err := o.validateCase(in); err != nil {
		return models.Case{}, o.reject(state.SliceCatalog, err)
	}
	done := o.start(state.SliceCatalog, nil)
	defer done()

	c, err := o.api.UpdateQuestion(ctx, o.token(), id, apiclient.CaseUpload{
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Images:         in.Images,
		ExistingImages: in.Retained,
	})
	if err != nil {
		return models.Case{}, o.fail(ctx, state.SliceCatalog, nil, err, "Error updating question")
	}
	o.store.DispatchCatalog(state.CaseUpdated{Case: c})
	notify.Success(o.notifier, "Question updated successfully")
	return c, nil
}

// DeleteQuestion removes the case locally only after the API confirms.
func (o *Ops) DeleteQuestion(ctx context.Context, id string) error {
	done := o.start(state.SliceCatalog, nil)
	defer done()

	if err := o.api.DeleteQuestion(ctx, o.token(), id); err != nil {
		return o.fail(ctx, state.SliceCatalog, nil, err, "Error deleting question")
	}
	o.store.DispatchCatalog(state.CaseRemoved{ID: id})
	notify.Success(o.notifier, "Question deleted successfully")
	return nil
}

func (o *Ops) SetQuestionStatus(ctx context.Context, id string, active bool) (models.Case, error) {
	done := o.start(state.SliceCatalog, nil)
	defer done()

	c, err := o.api.SetQuestionStatus(ctx, o.token(), id, active)
	if err != nil {
		return models.Case{}, o.fail(ctx, state.SliceCatalog, nil, err, "Error updating question status")
	}
	o.store.DispatchCatalog(state.CaseUpdated{Case: c})
	if active {
		notify.Success(o.notifier, "Question activated")
	} else {
		notify.Success(o.notifier, "Question deactivated")
	}
	return c, nil
}

func (o *Ops) SetFilters(f models.CaseFilters) {
	o.store.DispatchCatalog(state.FiltersSet{Filters: f})
}

func (o *Ops) ResetFilters() {
	o.store.DispatchCatalog(state.FiltersReset{})
}
