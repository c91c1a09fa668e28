package state

import "casedesk/internal/models"

type DirectoryState struct {
	Users      []models.Member
	Current    *models.Member
	Stats      models.UserStats
	Activities []models.Activity
	Loading    bool
	Error      string
}

func InitialDirectory() DirectoryState {
	return DirectoryState{Users: []models.Member{}, Activities: []models.Activity{}}
}

type UsersReplaced struct{ Users []models.Member }

// UserReplaced swaps the entry with the same id for the server's record.
type UserReplaced struct{ User models.Member }

// UserRemoved drops a deactivated user from the local list.
type UserRemoved struct{ ID string }

type CurrentUserSet struct{ User *models.Member }
type UserStatsSet struct{ Stats models.UserStats }
type ActivitiesReplaced struct{ Activities []models.Activity }

func (UsersReplaced) directoryEvent()      {}
func (UserReplaced) directoryEvent()       {}
func (UserRemoved) directoryEvent()        {}
func (CurrentUserSet) directoryEvent()     {}
func (UserStatsSet) directoryEvent()       {}
func (ActivitiesReplaced) directoryEvent() {}

func ReduceDirectory(s DirectoryState, ev DirectoryEvent) DirectoryState {
	switch e := ev.(type) {
	case UsersReplaced:
		s.Users = append([]models.Member{}, e.Users...)
	case UserReplaced:
		out := append([]models.Member{}, s.Users...)
		for i := range out {
			if out[i].ID == e.User.ID {
				out[i] = e.User
			}
		}
		s.Users = out
		if s.Current != nil && s.Current.ID == e.User.ID {
			u := e.User
			s.Current = &u
		}
	case UserRemoved:
		out := make([]models.Member, 0, len(s.Users))
		for _, u := range s.Users {
			if u.ID != e.ID {
				out = append(out, u)
			}
		}
		s.Users = out
		if s.Current != nil && s.Current.ID == e.ID {
			s.Current = nil
		}
	case CurrentUserSet:
		if e.User == nil {
			s.Current = nil
		} else {
			u := *e.User
			s.Current = &u
		}
	case UserStatsSet:
		s.Stats = e.Stats
	case ActivitiesReplaced:
		s.Activities = append([]models.Activity{}, e.Activities...)
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
