package ops

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"casedesk/internal/apiclient"
	"casedesk/internal/gate"
	"casedesk/internal/models"
	"casedesk/internal/notify"
	"casedesk/internal/state"
)

type LoginResult struct {
	User    models.User
	Landing string
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

type ProfileInput struct {
	Name  string
	Email string
}

// CheckAuthStatus confirms the persisted credential with the API. Any
// failure leaves the client signed out.
func (o *Ops) CheckAuthStatus(ctx context.Context) bool {
	done := o.start(state.SliceSession, nil)
	defer done()

	user, token, ok, err := o.store.Persisted(ctx)
	if err != nil {
		log.Printf("auth_check storage read failed: %v", err)
	}
	if !ok {
		o.forceLogout(ctx)
		return false
	}
	if tokenExpired(token, time.Now()) {
		log.Printf("auth_check token expired user=%s", user.ID)
		o.forceLogout(ctx)
		return false
	}
	// Profile is requested with the persisted token before the store holds it.
	fresh, err := o.api.Profile(ctx, token)
	if err != nil {
		log.Printf("auth_check failed kind=%s: %v", apiclient.Classify(err), err)
		o.forceLogout(ctx)
		return false
	}
	if err := o.store.SetCredentials(ctx, fresh, token); err != nil {
		log.Printf("auth_check persist failed: %v", err)
	}
	return true
}

// tokenExpired reads the exp claim of a JWT credential without verifying
// it. Opaque or unparsable credentials are left for the API to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// ValidateSession is the storage-only check: both keys must be present.
func (o *Ops) ValidateSession(ctx context.Context) bool {
	_, _, ok, err := o.store.Persisted(ctx)
	if err != nil || !ok {
		o.forceLogout(ctx)
		return false
	}
	return true
}

// Rehydrate restores identity from storage without a network call.
func (o *Ops) Rehydrate(ctx context.Context) bool {
	ok, err := o.store.Rehydrate(ctx)
	if err != nil {
		log.Printf("rehydrate failed: %v", err)
		o.forceLogout(ctx)
		return false
	}
	return ok
}

func (o *Ops) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, o.reject(state.SliceSession, invalid("email and password are required"))
	}
	done := o.start(state.SliceSession, nil)
	defer done()

	res, err := o.api.Login(ctx, email, password)
	if err != nil {
		if st := apiclient.Status(err); st == 400 || st == 401 {
			msg := apiclient.Message(err, "Invalid credentials")
			o.store.Mark(state.SliceSession, nil, state.Failed{Message: msg})
			notify.Error(o.notifier, msg)
			return LoginResult{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
		}
		return LoginResult{}, o.fail(ctx, state.SliceSession, nil, err, "Login failed")
	}
	if err := o.signedIn(ctx, res); err != nil {
		return LoginResult{}, err
	}
	notify.Success(o.notifier, "Login successful")
	return LoginResult{User: res.User, Landing: gate.Landing(res.User.Role)}, nil
}

func (o *Ops) Register(ctx context.Context, in RegisterInput) (LoginResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "":
		return LoginResult{}, o.reject(state.SliceSession, invalid("all fields are required"))
	case in.Password != in.ConfirmPassword:
		return LoginResult{}, o.reject(state.SliceSession, invalid("passwords do not match"))
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return LoginResult{}, o.reject(state.SliceSession, invalid("email address is not valid"))
	}
	done := o.start(state.SliceSession, nil)
	defer done()

	res, err := o.api.Register(ctx, apiclient.RegisterRequest{Name: in.Name, Email: in.Email, Password: in.Password})
	if err != nil {
		return LoginResult{}, o.fail(ctx, state.SliceSession, nil, err, "Registration failed")
	}
	if err := o.signedIn(ctx, res); err != nil {
		return LoginResult{}, err
	}
	notify.Success(o.notifier, "Registration successful")
	return LoginResult{User: res.User, Landing: gate.Landing(res.User.Role)}, nil
}

func (o *Ops) signedIn(ctx context.Context, res apiclient.AuthResult) error {
	if res.Token == "" || res.User.ID == "" {
		return o.fail(ctx, state.SliceSession, nil, fmt.Errorf("%w: auth response without identity", apiclient.ErrNetwork), "Login failed")
	}
	// A new identity must not see state or in-flight responses of the last.
	if prev := o.store.Snapshot().Session.UserID(); prev != "" && prev != res.User.ID {
		o.forceLogout(ctx)
	}
	if err := o.store.SetCredentials(ctx, res.User, res.Token); err != nil {
		log.Printf("persist credentials failed user=%s: %v", res.User.ID, err)
	}
	return nil
}

// LogoutUser is local only and always leaves the client signed out.
func (o *Ops) LogoutUser(ctx context.Context) {
	o.forceLogout(ctx)
	notify.Success(o.notifier, "Logged out successfully")
}

func (o *Ops) UpdateProfile(ctx context.Context, in ProfileInput) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" && in.Email == "" {
		return models.User{}, o.reject(state.SliceSession, invalid("nothing to update"))
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return models.User{}, o.reject(state.SliceSession, invalid("email address is not valid"))
		}
	}
	token := o.token()
	if token == "" {
		return models.User{}, ErrNotSignedIn
	}
	done := o.start(state.SliceSession, nil)
	defer done()

	user, err := o.api.UpdateProfile(ctx, token, apiclient.ProfileUpdate{Name: in.Name, Email: in.Email})
	if err != nil {
		return models.User{}, o.fail(ctx, state.SliceSession, nil, err, "Profile update failed")
	}
	if err := o.store.SetCredentials(ctx, user, token); err != nil {
		log.Printf("persist profile failed user=%s: %v", user.ID, err)
	}
	notify.Success(o.notifier, "Profile updated successfully")
	return user, nil
}

func (o *Ops) ChangePassword(ctx context.Context, current, next, confirm string) error {
	switch {
	case current == "" || next == "" || confirm == "":
		return o.reject(state.SliceSession, invalid("all password fields are required"))
	case next != confirm:
		return o.reject(state.SliceSession, invalid("new passwords do not match"))
	case next == current:
		return o.reject(state.SliceSession, invalid("new password must differ from the current one"))
	}
	token := o.token()
	if token == "" {
		return ErrNotSignedIn
	}
	done := o.start(state.SliceSession, nil)
	defer done()

	if err := o.api.ChangePassword(ctx, token, current, next); err != nil {
		return o.fail(ctx, state.SliceSession, nil, err, "Password change failed")
	}
	notify.Success(o.notifier, "Password changed successfully")
	return nil
}

func (o *Ops) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return o.reject(state.SliceSession, invalid("email address is not valid"))
	}
	done := o.start(state.SliceSession, nil)
	defer done()

	if err := o.api.ForgotPassword(ctx, email); err != nil {
		return o.fail(ctx, state.SliceSession, nil, err, "Failed to send reset link")
	}
	notify.Success(o.notifier, "Password reset link sent to your email")
	return nil
}

func (o *Ops) ResetPassword(ctx context.Context, resetToken, password, confirm string) error {
	switch {
	case strings.TrimSpace(resetToken) == "":
		return o.reject(state.SliceSession, invalid("reset token is required"))
	case password == "" || password != confirm:
		return o.reject(state.SliceSession, invalid("passwords do not match"))
	}
	done := o.start(state.SliceSession, nil)
	defer done()

	if err := o.api.ResetPassword(ctx, resetToken, password); err != nil {
		// A rejected reset token is not a session problem.
		if errors.Is(err, apiclient.ErrUnauthorized) {
			err = &apiclient.Error{Status: 400, Message: apiclient.Message(err, "Password reset failed")}
		}
		return o.fail(ctx, state.SliceSession, nil, err, "Password reset failed")
	}
	notify.Success(o.notifier, "Password reset successful")
	return nil
}
