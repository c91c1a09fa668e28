package apiclient

import (
	"context"
	"net/http"

	"casedesk/internal/models"
)

func (c *Client) Users(ctx context.Context, token string) ([]models.Member, error) {
	var out []models.Member
	err := c.getJSON(ctx, "/admin/users", token, &out)
	return out, err
}

func (c *Client) UserStats(ctx context.Context, token string) (models.UserStats, error) {
	var out models.UserStats
	err := c.getJSON(ctx, "/admin/users/stats", token, &out)
	return out, err
}

func (c *Client) UserDetails(ctx context.Context, token, id string) (models.Member, error) {
	var out models.Member
	err := c.getJSON(ctx, "/admin/users/"+escape(id), token, &out)
	return out, err
}

func (c *Client) UserActivities(ctx context.Context, token, id string) ([]models.Activity, error) {
	var out []models.Activity
	err := c.getJSON(ctx, "/admin/users/"+escape(id)+"/activities", token, &out)
	return out, err
}

func (c *Client) UpdateUserRole(ctx context.Context, token, id string, role models.Role) (models.Member, error) {
	var out models.Member
	err := c.sendJSON(ctx, http.MethodPut, "/admin/users/"+escape(id)+"/role", token, map[string]models.Role{"role": role}, &out)
	return out, err
}

func (c *Client) DeactivateUser(ctx context.Context, token, id string) error {
	return c.sendJSON(ctx, http.MethodPut, "/admin/users/"+escape(id)+"/deactivate", token, nil, nil)
}
