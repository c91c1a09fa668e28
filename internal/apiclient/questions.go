package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"casedesk/internal/models"
)

type CaseQuery struct {
	Page    int
	Limit   int
	Filters models.CaseFilters
}

func (q CaseQuery) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Filters.Search != "" {
		v.Set("search", q.Filters.Search)
	}
	if q.Filters.Status != "" {
		v.Set("status", q.Filters.Status)
	}
	if q.Filters.SortBy != "" {
		v.Set("sortBy", q.Filters.SortBy)
	}
	if q.Filters.SortOrder != "" {
		v.Set("sortOrder", q.Filters.SortOrder)
	}
	return v
}

// Image is a new file attached to a case.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CaseUpload is the multipart body of a create or edit. ExistingImages lists
// stored image references the editor chose to keep; it is sent only on edits.
type CaseUpload struct {
	Title          string
	Description    string
	Images         []Image
	ExistingImages []string
}

func (c *Client) ListQuestions(ctx context.Context, token string, q CaseQuery) (models.CasePage, error) {
	var out models.CasePage
	err := c.getJSON(ctx, "/questions?"+q.values().Encode(), token, &out)
	return out, err
}

func (c *Client) GetQuestion(ctx context.Context, token, id string) (models.Case, error) {
	var out models.Case
	err := c.getJSON(ctx, "/questions/"+escape(id), token, &out)
	return out, err
}

func (c *Client) QuestionStats(ctx context.Context, token string) (models.CaseStats, error) {
	var out models.CaseStats
	err := c.getJSON(ctx, "/questions/stats", token, &out)
	return out, err
}

func (c *Client) CreateQuestion(ctx context.Context, token string, up CaseUpload) (models.Case, error) {
	var out models.Case
	err := c.sendMultipart(ctx, http.MethodPost, "/questions", token, up, false, &out)
	return out, err
}

func (c *Client) UpdateQuestion(ctx context.Context, token, id string, up CaseUpload) (models.Case, error) {
	var out models.Case
	err := c.sendMultipart(ctx, http.MethodPut, "/questions/"+escape(id), token, up, true, &out)
	return out, err
}

func (c *Client) DeleteQuestion(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/questions/"+escape(id), token, nil, "", nil)
}

func (c *Client) SetQuestionStatus(ctx context.Context, token, id string, active bool) (models.Case, error) {
	var out models.Case
	err := c.sendJSON(ctx, http.MethodPatch, "/questions/"+escape(id)+"/status", token, map[string]bool{"active": active}, &out)
	return out, err
}

func (c *Client) sendMultipart(ctx context.Context, method, path, token string, up CaseUpload, withExisting bool, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", up.Title); err != nil {
		return err
	}
	if err := mw.WriteField("description", up.Description); err != nil {
		return err
	}
	if withExisting {
		existing := up.ExistingImages
		if existing == nil {
			existing = []string{}
		}
		raw, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		if err := mw.WriteField("existingImages", string(raw)); err != nil {
			return err
		}
	}
	for _, img := range up.Images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, img.Filename))
		h.Set("Content-Type", img.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(img.Data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.do(ctx, method, path, token, &buf, mw.FormDataContentType(), out)
}
