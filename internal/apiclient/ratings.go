package apiclient

import (
	"context"
	"net/http"

	"casedesk/internal/models"
)

type RatingSubmission struct {
	QuestionID string `json:"questionId"`
	Rating     int    `json:"rating"`
	UserID     string `json:"userId"`
}

func (c *Client) UserRatings(ctx context.Context, token string) ([]models.Rating, error) {
	var out struct {
		Ratings []models.Rating `json:"ratings"`
	}
	if err := c.getJSON(ctx, "/ratings/user", token, &out); err != nil {
		return nil, err
	}
	if out.Ratings == nil {
		out.Ratings = []models.Rating{}
	}
	return out.Ratings, nil
}

func (c *Client) SubmitRating(ctx context.Context, token string, sub RatingSubmission) error {
	return c.sendJSON(ctx, http.MethodPost, "/ratings", token, sub, nil)
}

func (c *Client) UpdateRating(ctx context.Context, token, caseID string, score int) error {
	return c.sendJSON(ctx, http.MethodPut, "/ratings/"+escape(caseID), token, map[string]int{"rating": score}, nil)
}

func (c *Client) DeleteRating(ctx context.Context, token, caseID string) error {
	return c.do(ctx, http.MethodDelete, "/ratings/"+escape(caseID), token, nil, "", nil)
}

func (c *Client) RatingStats(ctx context.Context, token string) (models.RatingStats, error) {
	var out models.RatingStats
	err := c.getJSON(ctx, "/ratings/stats", token, &out)
	return out, err
}
