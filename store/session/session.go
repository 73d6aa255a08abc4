package session

import (
	"context"
	"log/slog"

	"github.com/sabicash/sabicash/core"
)

// storage keys shared with the web dashboard
const (
	KeySabiRideToken = "sabiRideToken"
	KeySabiCashToken = "sabiCashToken"
	KeyRefreshToken  = "sabiCashRefreshToken"
	KeyCurrentUser   = "currentUser"
)

var Keys = []string{KeySabiRideToken, KeySabiCashToken, KeyRefreshToken, KeyCurrentUser}

func New(properties core.PropertyStore, logger *slog.Logger) core.SessionStore {
	return &sessionStore{
		properties: properties,
		logger:     logger.With("store", "session"),
	}
}

type sessionStore struct {
	properties core.PropertyStore
	logger     *slog.Logger
}

func (s *sessionStore) Save(ctx context.Context, session *core.Session) error {
	return s.properties.SetMany(ctx, map[string]any{
		KeySabiRideToken: session.SabiRideToken,
		KeySabiCashToken: session.SabiCashToken,
		KeyRefreshToken:  session.RefreshToken,
		KeyCurrentUser:   session.User,
	})
}

func (s *sessionStore) SetTokens(ctx context.Context, tokens core.Tokens) error {
	values := map[string]any{}
	if tokens.SabiRideToken != "" {
		values[KeySabiRideToken] = tokens.SabiRideToken
	}

	if tokens.SabiCashToken != "" {
		values[KeySabiCashToken] = tokens.SabiCashToken
	}

	if tokens.RefreshToken != "" {
		values[KeyRefreshToken] = tokens.RefreshToken
	}

	if len(values) == 0 {
		return nil
	}

	return s.properties.SetMany(ctx, values)
}

func (s *sessionStore) SetUser(ctx context.Context, user *core.User) error {
	return s.properties.Set(ctx, KeyCurrentUser, user)
}

func (s *sessionStore) Tokens(ctx context.Context) core.Tokens {
	return core.Tokens{
		SabiRideToken: s.getString(ctx, KeySabiRideToken),
		SabiCashToken: s.getString(ctx, KeySabiCashToken),
		RefreshToken:  s.getString(ctx, KeyRefreshToken),
	}
}

func (s *sessionStore) User(ctx context.Context) *core.User {
	var user *core.User
	if err := s.properties.Get(ctx, KeyCurrentUser, &user); err != nil {
		s.logger.Warn("properties.Get", "key", KeyCurrentUser, "err", err)
		return nil
	}

	return user
}

func (s *sessionStore) Clear(ctx context.Context) error {
	return s.properties.Delete(ctx, Keys...)
}

func (s *sessionStore) getString(ctx context.Context, key string) string {
	var v string
	if err := s.properties.Get(ctx, key, &v); err != nil {
		s.logger.Warn("properties.Get", "key", key, "err", err)
		return ""
	}

	return v
}
