package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/sabiapi"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	// refresh the rewards token when it expires within this window
	RefreshSkew    time.Duration `valid:"-"`
	RefreshTimeout time.Duration `valid:"-"`
	LogoutTimeout  time.Duration `valid:"-"`
}

func New(
	ride *sabiapi.Client,
	cash *sabiapi.Client,
	sessions core.SessionStore,
	cfg Config,
	logger *slog.Logger,
) core.AuthService {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.RefreshSkew <= 0 {
		cfg.RefreshSkew = time.Minute
	}

	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 15 * time.Second
	}

	if cfg.LogoutTimeout <= 0 {
		cfg.LogoutTimeout = 5 * time.Second
	}

	return &service{
		ride:     ride,
		cash:     cash,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.With("service", "auth"),
		now:      time.Now,
	}
}

type service struct {
	ride     *sabiapi.Client
	cash     *sabiapi.Client
	sessions core.SessionStore
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	sf singleflight.Group

	mux           sync.Mutex
	state         core.AuthState
	disconnectors []core.WalletDisconnector
}

type upstreamLoginRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	UserType core.UserType `json:"userType"`
}

type upstreamLoginResponse struct {
	Token string     `json:"token"`
	User  *core.User `json:"user"`
}

type exchangeRequest struct {
	SabiRideToken string        `json:"sabiRideToken"`
	Email         string        `json:"email"`
	UserType      core.UserType `json:"userType"`
	WalletAddress string        `json:"walletAddress,omitempty"`
}

type exchangeResponse struct {
	Success      bool       `json:"success"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	User         *core.User `json:"user"`
	Points       int64      `json:"points"`
	Message      string     `json:"message"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (s *service) setState(state core.AuthState) {
	s.mux.Lock()
	s.state = state
	s.mux.Unlock()
}

func (s *service) State() core.AuthState {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.state
}

// OnLogout registers a wallet connection released by Logout.
func (s *service) OnLogout(d core.WalletDisconnector) {
	s.mux.Lock()
	s.disconnectors = append(s.disconnectors, d)
	s.mux.Unlock()
}

// Login authenticates against the ride platform, then exchanges the ride
// token for a rewards token. The session is persisted only when both steps
// succeed.
func (s *service) Login(ctx context.Context, email, password string, userType core.UserType, walletAddress string) (*core.LoginResult, error) {
	if !govalidator.IsEmail(email) {
		return nil, core.NewError(core.ErrValidation, "invalid email %q", email)
	}

	if password == "" {
		return nil, core.NewError(core.ErrValidation, "password is required")
	}

	if userType == "" {
		userType = core.UserTypeRider
	}

	s.setState(core.AuthStateIdle)

	var upstream upstreamLoginResponse
	if err := s.ride.Post(ctx, "/auth/login", "", upstreamLoginRequest{
		Email:    email,
		Password: password,
		UserType: userType,
	}, &upstream); err != nil {
		s.logger.Info("upstream login failed", "email", email, "err", err)
		return nil, err
	}

	if upstream.Token == "" {
		return nil, core.NewError(core.ErrAuth, "upstream login returned no token")
	}

	s.setState(core.AuthStateUpstreamAuthenticated)

	var exchanged exchangeResponse
	err := s.cash.Post(ctx, "/auth/login", "", exchangeRequest{
		SabiRideToken: upstream.Token,
		Email:         email,
		UserType:      userType,
		WalletAddress: walletAddress,
	}, &exchanged)
	if err == nil && (!exchanged.Success || exchanged.Token == "") {
		msg := exchanged.Message
		if msg == "" {
			msg = "token exchange rejected"
		}
		err = core.NewError(core.ErrAuth, "%s", msg)
	}

	if err != nil {
		s.setState(core.AuthStatePartialFailure)
		s.logger.Warn("token exchange failed", "email", email, "err", err)
		return nil, &core.PartialAuthError{Err: err}
	}

	user := exchanged.User
	if user == nil {
		user = upstream.User
	}

	if user == nil {
		user = &core.User{Email: email, UserType: userType}
	}

	if walletAddress != "" && user.WalletAddress == "" {
		user.WalletAddress = walletAddress
	}

	user.Points = exchanged.Points

	tokens := core.Tokens{
		SabiRideToken: upstream.Token,
		SabiCashToken: exchanged.Token,
		RefreshToken:  exchanged.RefreshToken,
	}

	if err := s.sessions.Save(ctx, &core.Session{Tokens: tokens, User: user}); err != nil {
		s.setState(core.AuthStateIdle)
		s.logger.Error("sessions.Save", "err", err)
		return nil, err
	}

	s.setState(core.AuthStateAuthenticated)

	return &core.LoginResult{
		Success: true,
		User:    user,
		Points:  exchanged.Points,
		Tokens:  tokens,
	}, nil
}

// Logout invalidates the remote session when possible. Local state is
// always cleared.
func (s *service) Logout(ctx context.Context) {
	if token := s.sessions.Tokens(ctx).SabiCashToken; token != "" {
		rctx, cancel := context.WithTimeout(ctx, s.cfg.LogoutTimeout)
		if err := s.cash.Post(rctx, "/auth/logout", token, nil, nil); err != nil {
			s.logger.Warn("remote logout failed", "err", err)
		}
		cancel()
	}

	// a cancelled caller must not keep the session alive
	if err := s.sessions.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("sessions.Clear", "err", err)
	}

	s.mux.Lock()
	disconnectors := s.disconnectors
	s.state = core.AuthStateIdle
	s.mux.Unlock()

	for _, d := range disconnectors {
		d.Disconnect()
	}
}

func (s *service) Tokens(ctx context.Context) core.Tokens {
	return s.sessions.Tokens(ctx)
}

func (s *service) StoredUser(ctx context.Context) *core.User {
	return s.sessions.User(ctx)
}

func (s *service) UpdateStoredUser(ctx context.Context, user *core.User) error {
	return s.sessions.SetUser(ctx, user)
}

// RefreshToken exchanges the stored refresh token for a new rewards token.
// Any failure logs the user out. Concurrent callers share one exchange
// that outlives a cancelled caller.
func (s *service) RefreshToken(ctx context.Context) (string, error) {
	ch := s.sf.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RefreshTimeout)
		defer cancel()

		return s.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		return res.Val.(string), nil
	}
}

func (s *service) refresh(ctx context.Context) (string, error) {
	refreshToken := s.sessions.Tokens(ctx).RefreshToken
	if refreshToken == "" {
		s.Logout(ctx)
		return "", core.NewError(core.ErrAuth, "no refresh token")
	}

	var resp refreshResponse
	if err := s.cash.Post(ctx, "/auth/refresh", "", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		s.logger.Warn("refresh failed, logging out", "err", err)
		s.Logout(ctx)
		return "", &core.Error{Kind: core.ErrAuth, Status: sabiapi.StatusOf(err), Message: "session expired", Err: err}
	}

	if resp.Token == "" {
		s.Logout(ctx)
		return "", core.NewError(core.ErrAuth, "refresh returned no token")
	}

	if err := s.sessions.SetTokens(ctx, core.Tokens{
		SabiCashToken: resp.Token,
		RefreshToken:  resp.RefreshToken,
	}); err != nil {
		s.logger.Error("sessions.SetTokens", "err", err)
		return "", err
	}

	return resp.Token, nil
}

// AccessToken returns the rewards token, refreshing it first when it is
// about to expire.
func (s *service) AccessToken(ctx context.Context) (string, error) {
	token := s.sessions.Tokens(ctx).SabiCashToken
	if token == "" {
		return "", core.NewError(core.ErrAuth, "not logged in")
	}

	exp, ok := expiresAt(token)
	if !ok || exp.After(s.now().Add(s.cfg.RefreshSkew)) {
		return token, nil
	}

	return s.RefreshToken(ctx)
}

// expiresAt reads the exp claim without verifying the signature. The
// server verifies, the client only schedules refreshes.
func expiresAt(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}
