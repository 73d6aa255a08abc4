package core

import "context"

type UserType string

const (
	UserTypeRider  UserType = "rider"
	UserTypeDriver UserType = "driver"
	UserTypeAdmin  UserType = "admin"
)

type User struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	Name          string   `json:"name,omitempty"`
	UserType      UserType `json:"userType"`
	Role          string   `json:"role,omitempty"`
	WalletAddress string   `json:"walletAddress,omitempty"`
	Points        int64    `json:"points"`
}

func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == "admin" || u.UserType == UserTypeAdmin)
}

type Tokens struct {
	SabiRideToken string `json:"sabiRideToken,omitempty"`
	SabiCashToken string `json:"sabiCashToken,omitempty"`
	RefreshToken  string `json:"refreshToken,omitempty"`
}

func (t Tokens) Empty() bool {
	return t.SabiCashToken == "" && t.SabiRideToken == ""
}

type Session struct {
	Tokens
	User *User `json:"user,omitempty"`
}

type LoginResult struct {
	Success bool   `json:"success"`
	User    *User  `json:"user"`
	Points  int64  `json:"points"`
	Tokens  Tokens `json:"tokens"`
}

type AuthState uint8

const (
	AuthStateIdle AuthState = iota
	AuthStateUpstreamAuthenticated
	AuthStateAuthenticated
	AuthStatePartialFailure
)

func (s AuthState) String() string {
	switch s {
	case AuthStateUpstreamAuthenticated:
		return "UpstreamAuthenticated"
	case AuthStateAuthenticated:
		return "Authenticated"
	case AuthStatePartialFailure:
		return "PartialAuthFailure"
	default:
		return "Idle"
	}
}

// SessionStore persists the session under the four storage keys.
// Reads never fail: missing or malformed values come back empty.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Tokens(ctx context.Context) Tokens
	User(ctx context.Context) *User
	SetUser(ctx context.Context, user *User) error
	SetTokens(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
}

// WalletDisconnector is anything holding a live wallet connection that
// must be released on logout.
type WalletDisconnector interface {
	Disconnect()
}

type AuthService interface {
	Login(ctx context.Context, email, password string, userType UserType, walletAddress string) (*LoginResult, error)
	Logout(ctx context.Context)
	Tokens(ctx context.Context) Tokens
	StoredUser(ctx context.Context) *User
	UpdateStoredUser(ctx context.Context, user *User) error
	RefreshToken(ctx context.Context) (string, error)
	AccessToken(ctx context.Context) (string, error)
	State() AuthState
	OnLogout(d WalletDisconnector)
}
