package ops

import (
	"context"

	"casedesk/internal/models"
	"casedesk/internal/notify"
	"casedesk/internal/state"
)

func (o *Ops) FetchUsers(ctx context.Context) ([]models.Member, error) {
	t := o.store.Begin(state.ResUsers)
	done := o.start(state.SliceDirectory, &t)
	defer done()

	users, err := o.api.Users(ctx, o.token())
	if err != nil {
		return nil, o.fail(ctx, state.SliceDirectory, &t, err, "Error fetching users")
	}
	o.store.CommitDirectory(t, state.UsersReplaced{Users: users})
	return users, nil
}

func (o *Ops) FetchUserStats(ctx context.Context) (models.UserStats, error) {
	t := o.store.Begin(state.ResUserStats)
	done := o.start(state.SliceDirectory, &t)
	defer done()

	st, err := o.api.UserStats(ctx, o.token())
	if err != nil {
		return models.UserStats{}, o.fail(ctx, state.SliceDirectory, &t, err, "Error fetching user statistics")
	}
	o.store.CommitDirectory(t, state.UserStatsSet{Stats: st})
	return st, nil
}

func (o *Ops) FetchUserDetails(ctx context.Context, id string) (models.Member, error) {
	t := o.store.Begin(state.ResUserDetail)
	done := o.start(state.SliceDirectory, &t)
	defer done()

	u, err := o.api.UserDetails(ctx, o.token(), id)
	if err != nil {
		return models.Member{}, o.fail(ctx, state.SliceDirectory, &t, err, "Error fetching user details")
	}
	o.store.CommitDirectory(t, state.CurrentUserSet{User: &u})
	return u, nil
}

func (o *Ops) FetchUserActivities(ctx context.Context, id string) ([]models.Activity, error) {
	t := o.store.Begin(state.ResActivities)
	done := o.start(state.SliceDirectory, &t)
	defer done()

	acts, err := o.api.UserActivities(ctx, o.token(), id)
	if err != nil {
		return nil, o.fail(ctx, state.SliceDirectory, &t, err, "Error fetching user activities")
	}
	o.store.CommitDirectory(t, state.ActivitiesReplaced{Activities: acts})
	return acts, nil
}

// UpdateUserRole replaces the local entry with the server's record after the
// change is confirmed.
func (o *Ops) UpdateUserRole(ctx context.Context, id string, role models.Role) (models.Member, error) {
	if !role.Valid() {
		return models.Member{}, o.reject(state.SliceDirectory, invalid("role must be user or admin"))
	}
	done := o.start(state.SliceDirectory, nil)
	defer done()

	u, err := o.api.UpdateUserRole(ctx, o.token(), id, role)
	if err != nil {
		return models.Member{}, o.fail(ctx, state.SliceDirectory, nil, err, "Error updating user role")
	}
	o.store.DispatchDirectory(state.UserReplaced{User: u})
	notify.Success(o.notifier, "User role updated successfully")
	return u, nil
}

func (o *Ops) DeactivateUser(ctx context.Context, id string) error {
	if id == o.store.Snapshot().Session.UserID() {
		return o.reject(state.SliceDirectory, invalid("you cannot deactivate your own account"))
	}
	done := o.start(state.SliceDirectory, nil)
	defer done()

	if err := o.api.DeactivateUser(ctx, o.token(), id); err != nil {
		return o.fail(ctx, state.SliceDirectory, nil, err, "Error deactivating user")
	}
	o.store.DispatchDirectory(state.UserRemoved{ID: id})
	notify.Success(o.notifier, "User deactivated successfully")
	return nil
}
