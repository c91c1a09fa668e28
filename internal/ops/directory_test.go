package ops

import (
	"context"
	"errors"
	"testing"

	"casedesk/internal/apiclient"
	"casedesk/internal/models"
)

func TestDirectoryRoleAndDeactivate(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleAdmin)
	h.api.users = []models.Member{{ID: "u1", Role: models.RoleAdmin}, {ID: "u2", Role: models.RoleUser}, {ID: "u3"}}
	ctx := context.Background()

	if _, err := h.ops.FetchUsers(ctx); err != nil {
		t.Fatalf("fetch users: %v", err)
	}
	if _, err := h.ops.UpdateUserRole(ctx, "u2", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	dir := h.store.Snapshot().Directory
	if dir.Users[1].Role != models.RoleAdmin || len(dir.Users) != 3 {
		t.Fatalf("expected server record to replace entry: %#v", dir.Users)
	}

	h.api.err["DeactivateUser"] = &apiclient.Error{Status: 403, Message: "Forbidden"}
	if err := h.ops.DeactivateUser(ctx, "u3"); err == nil {
		t.Fatalf("expected failure")
	}
	if len(h.store.Snapshot().Directory.Users) != 3 {
		t.Fatalf("user must stay until the server confirms")
	}
	delete(h.api.err, "DeactivateUser")
	if err := h.ops.DeactivateUser(ctx, "u3"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if len(h.store.Snapshot().Directory.Users) != 2 {
		t.Fatalf("expected user to be removed")
	}
}

func TestUpdateUserRoleRejectsUnknownRole(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleAdmin)
	if _, err := h.ops.UpdateUserRole(context.Background(), "u2", "owner"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.api.count("UpdateUserRole") != 0 {
		t.Fatalf("expected no call")
	}
}

func TestDeactivateSelfRejected(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleAdmin)
	if err := h.ops.DeactivateUser(context.Background(), "u1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserDetailsAndActivities(t *testing.T) {
	h := newHarness(5)
	h.signIn(models.RoleAdmin)
	ctx := context.Background()
	if _, err := h.ops.FetchUserDetails(ctx, "u9"); err != nil {
		t.Fatalf("details: %v", err)
	}
	if _, err := h.ops.FetchUserActivities(ctx, "u9"); err != nil {
		t.Fatalf("activities: %v", err)
	}
	if _, err := h.ops.FetchUserStats(ctx); err != nil {
		t.Fatalf("stats: %v", err)
	}
	dir := h.store.Snapshot().Directory
	if dir.Current == nil || dir.Current.ID != "u9" || len(dir.Activities) != 1 || dir.Loading {
		t.Fatalf("unexpected directory: %#v", dir)
	}
}
