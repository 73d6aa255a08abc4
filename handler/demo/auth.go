package demo

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sabicash/sabicash/core"
)

type contextKey struct{}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(a *account) (string, error) {
	now := s.now()
	c := claims{
		Role: a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(s.cfg.Secret))
}

func (s *Server) parseToken(token string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	if _, ok := s.revoked.Get(c.ID); ok {
		return nil, errors.New("token revoked")
	}

	return &c, nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.error(w, http.StatusUnauthorized, "", "missing bearer token")
			return
		}

		c, err := s.parseToken(token)
		if err != nil {
			s.error(w, http.StatusUnauthorized, "", "invalid token")
			return
		}

		s.mux.Lock()
		a, ok := s.accounts[c.Subject]
		active := ok && a.Status == "active"
		s.mux.Unlock()

		if !active {
			s.error(w, http.StatusUnauthorized, "", "account not active")
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claimsFrom(r).Role != "admin" {
			s.error(w, http.StatusForbidden, "", "admin only")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func claimsFrom(r *http.Request) *claims {
	return r.Context().Value(contextKey{}).(*claims)
}

func (s *Server) rideLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string        `json:"email"`
		Password string        `json:"password"`
		UserType core.UserType `json:"userType"`
	}
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	a := s.accountByEmail(req.Email)
	if a == nil || a.Password != req.Password {
		s.error(w, http.StatusUnauthorized, "", "invalid credentials")
		return
	}

	if a.Status != "active" {
		s.error(w, http.StatusForbidden, "", "account suspended")
		return
	}

	token := uuid.NewString()
	s.rideTokens[token] = a.ID

	s.render(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  a.User,
	})
}

// exchange trades a ride platform token for a rewards api session.
func (s *Server) exchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SabiRideToken string `json:"sabiRideToken"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	id, ok := s.rideTokens[req.SabiRideToken]
	if !ok {
		s.error(w, http.StatusUnauthorized, "", "invalid ride token")
		return
	}

	a, ok := s.accounts[id]
	if !ok {
		delete(s.rideTokens, req.SabiRideToken)
		s.error(w, http.StatusUnauthorized, "", "account not found")
		return
	}

	if req.WalletAddress != "" {
		a.WalletAddress = req.WalletAddress
	}

	token, err := s.issueToken(a)
	if err != nil {
		s.logger.Error("issueToken", "err", err)
		s.error(w, http.StatusInternalServerError, "", "cannot issue token")
		return
	}

	refresh := uuid.NewString()
	s.refresh[refresh] = a.ID

	s.render(w, http.StatusOK, map[string]any{
		"success":      true,
		"token":        token,
		"refreshToken": refresh,
		"user":         a.User,
		"points":       a.Points,
	})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	id, ok := s.refresh[req.RefreshToken]
	if !ok {
		s.error(w, http.StatusUnauthorized, "", "invalid refresh token")
		return
	}

	// refresh tokens rotate on every use
	delete(s.refresh, req.RefreshToken)

	a, ok := s.accounts[id]
	if !ok {
		s.error(w, http.StatusUnauthorized, "", "account not found")
		return
	}

	token, err := s.issueToken(a)
	if err != nil {
		s.error(w, http.StatusInternalServerError, "", "cannot issue token")
		return
	}

	next := uuid.NewString()
	s.refresh[next] = a.ID

	s.render(w, http.StatusOK, map[string]string{
		"token":        token,
		"refreshToken": next,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)
	s.revoked.Add(c.ID, struct{}{})

	s.mux.Lock()
	dropTokens(s.refresh, c.Subject)
	s.mux.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// dropTokens removes every token of tokens that belongs to account id.
func dropTokens(tokens map[string]string, id string) {
	for token, owner := range tokens {
		if owner == id {
			delete(tokens, token)
		}
	}
}
