// Package session keeps the backend token and the logged in user's profile
// between CLI invocations.
package session

import (
	"context"
	"errors"
)

// ErrNoSession is returned by Load when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// User is the profile returned by login.
type User struct {
	ID       int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is what gets persisted after a successful login.
type Session struct {
	Token string `json:"access_token"`
	User  User   `json:"user_data"`
}

// Store persists a Session. Implementations satisfy api.TokenStore.
type Store interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (Session, error)
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// tokenFrom adapts Load for the Token method shared by every store.
func tokenFrom(ctx context.Context, s Store) (string, error) {
	sess, err := s.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}
