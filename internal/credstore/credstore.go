// Package credstore is the durable client-side storage behind the session
// store. It mirrors the credential and the user profile under fixed keys so a
// restarted client can rehydrate identity without a network round trip.
package credstore

import (
	"context"
	"errors"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
)

var ErrUnknownKey = errors.New("unknown storage key")

type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

func validKey(key string) error {
	if key != KeyToken && key != KeyUser {
		return ErrUnknownKey
	}
	return nil
}
