package state

import "casedesk/internal/models"

type SessionState struct {
	User    *models.User
	Token   string
	Loading bool
	Error   string
}

func (s SessionState) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

func (s SessionState) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

type CredentialsSet struct {
	User  models.User
	Token string
}

type LoggedOut struct{}

func (CredentialsSet) sessionEvent() {}
func (LoggedOut) sessionEvent()      {}

func ReduceSession(s SessionState, ev SessionEvent) SessionState {
	switch e := ev.(type) {
	case CredentialsSet:
		u := e.User
		s.User = &u
		s.Token = e.Token
	case LoggedOut:
		s.User = nil
		s.Token = ""
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
