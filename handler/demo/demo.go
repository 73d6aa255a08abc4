// Package demo is an in-memory implementation of the SabiCash REST api
// for local development and tests. It is a separate backend, clients have
// no switch that fabricates responses.
package demo

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oxtoacart/bpool"
	"github.com/sabicash/sabicash/core"
	"github.com/shopspring/decimal"
	"github.com/zyedidia/generic/mapset"
)

type Config struct {
	Secret   string
	TokenTTL time.Duration
}

type account struct {
	core.AdminUser
	Password     string
	LastEarnedAt *time.Time
}

type Server struct {
	cfg    Config
	logger *slog.Logger
	pool   *bpool.BufferPool
	now    func() time.Time

	mux        sync.Mutex
	accounts   map[string]*account // by id
	rideTokens map[string]string   // ride token -> account id
	refresh    map[string]string   // refresh token -> account id
	revoked    *lru.Cache[string, struct{}]
	history    map[string][]*core.PointsHistoryEntry
	completed  map[string]mapset.Set[string]
	tasks      []*core.Task
	plans      []*core.MiningPlan
	stakes     map[string][]*core.Stake
	txs        []*core.Transaction
	contract   core.ContractParams

	faultMux sync.Mutex
	faults   map[string]int
}

func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.Secret == "" {
		cfg.Secret = "sabicash-demo"
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}

	revoked, err := lru.New[string, struct{}](4096)
	if err != nil {
		panic(err)
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger.With("handler", "demo"),
		pool:       bpool.NewBufferPool(64),
		now:        time.Now,
		accounts:   map[string]*account{},
		rideTokens: map[string]string{},
		refresh:    map[string]string{},
		revoked:    revoked,
		history:    map[string][]*core.PointsHistoryEntry{},
		completed:  map[string]mapset.Set[string]{},
		stakes:     map[string][]*core.Stake{},
		faults:     map[string]int{},
		contract: core.ContractParams{
			ConversionRate: core.PointToSabiRate,
			MinConversion:  core.MinPointConversion,
			StakingAPY:     decimal.NewFromInt(12),
		},
	}

	s.seed()
	return s
}

// Handler serves the ride platform under /ride and the rewards api under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.injectFaults)

	r.Route("/ride", func(r chi.Router) {
		r.Post("/auth/login", s.rideLogin)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.exchange)
		r.Post("/auth/refresh", s.refreshToken)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/auth/logout", s.logout)

			r.Get("/points/balance", s.pointsBalance)
			r.Get("/points/history", s.pointsHistory)
			r.Post("/points/validate-conversion", s.validateConversion)
			r.Post("/points/convert", s.convertPoints)

			r.Get("/tasks", s.listTasks)
			r.Post("/tasks/{id}/complete", s.completeTask)

			r.Get("/mining/plans", s.listPlans)
			r.Get("/mining/stakes", s.listStakes)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				s.adminRoutes(r)
			})
		})
	})

	return r
}

// Fail makes every request to path answer with status until cleared with 0.
func (s *Server) Fail(path string, status int) {
	s.faultMux.Lock()
	defer s.faultMux.Unlock()

	if status == 0 {
		delete(s.faults, path)
		return
	}

	s.faults[path] = status
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.faultMux.Lock()
		status, ok := s.faults[r.URL.Path]
		s.faultMux.Unlock()

		if ok {
			s.error(w, status, "", "injected fault")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SetPoints overrides the point balance of the account with email.
func (s *Server) SetPoints(email string, points int64) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if a := s.accountByEmail(email); a != nil {
		a.Points = points
	}
}

func (s *Server) seed() {
	now := s.now()

	s.addAccount("admin@sabi.cash", "admin123", "Sabi Admin", core.UserTypeAdmin, "admin", 0)
	rider := s.addAccount("rider@sabi.cash", "rider123", "Ada Rider", core.UserTypeRider, "user", 1200)
	s.addAccount("driver@sabi.cash", "driver123", "Tunde Driver", core.UserTypeDriver, "user", 300)

	s.appendHistory(rider.ID, core.PointsEntryEarn, 1200, "ride rewards", now.Add(-24*time.Hour))

	s.tasks = []*core.Task{
		{ID: "task-follow", Title: "Follow SabiCash", Description: "Follow the project account", Points: 50, Type: "social", Active: true},
		{ID: "task-refer", Title: "Refer a friend", Description: "Invite a rider to SabiRide", Points: 200, Type: "referral", Active: true},
		{ID: "task-ride", Title: "Complete 10 rides", Points: 100, Type: "ride", Active: true},
	}

	s.plans = []*core.MiningPlan{
		{ID: "plan-basic", Name: "Basic", DailyRate: decimal.RequireFromString("0.5"), DurationDays: 30, MinStake: decimal.NewFromInt(100), Active: true},
		{ID: "plan-pro", Name: "Pro", DailyRate: decimal.RequireFromString("1.2"), DurationDays: 90, MinStake: decimal.NewFromInt(1000), Active: true},
	}

	s.stakes[rider.ID] = []*core.Stake{
		{ID: uuid.NewString(), PlanID: "plan-basic", Amount: decimal.NewFromInt(250), StartedAt: now.Add(-72 * time.Hour), RewardsAccrued: decimal.RequireFromString("3.75")},
	}
}

func (s *Server) addAccount(email, password, name string, userType core.UserType, role string, points int64) *account {
	a := &account{
		AdminUser: core.AdminUser{
			User: core.User{
				ID:       uuid.NewString(),
				Email:    email,
				Name:     name,
				UserType: userType,
				Role:     role,
				Points:   points,
			},
			Status:    "active",
			CreatedAt: s.now(),
		},
		Password: password,
	}

	s.accounts[a.ID] = a
	return a
}

// accountByEmail requires s.mux
func (s *Server) accountByEmail(email string) *account {
	for _, a := range s.accounts {
		if a.Email == email {
			return a
		}
	}

	return nil
}

// appendHistory requires s.mux
func (s *Server) appendHistory(userID string, typ core.PointsEntryType, points int64, desc string, at time.Time) {
	s.history[userID] = append(s.history[userID], &core.PointsHistoryEntry{
		ID:          uuid.NewString(),
		Type:        typ,
		Points:      points,
		Description: desc,
		CreatedAt:   at,
	})

	if points > 0 {
		t := at
		if a, ok := s.accounts[userID]; ok {
			a.LastEarnedAt = &t
		}
	}
}

func (s *Server) sortedAccounts() []*core.AdminUser {
	users := make([]*core.AdminUser, 0, len(s.accounts))
	for _, a := range s.accounts {
		u := a.AdminUser
		users = append(users, &u)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].Email < users[j].Email
	})

	return users
}

func (s *Server) render(w http.ResponseWriter, status int, v any) {
	buf := s.pool.Get()
	defer s.pool.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		s.logger.Error("json.Encode", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) error(w http.ResponseWriter, status int, code, detail string) {
	body := map[string]string{"detail": detail}
	if code != "" {
		body["code"] = code
	}

	s.render(w, status, body)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// Transactions returns a copy of the recorded conversions.
func (s *Server) Transactions() []core.Transaction {
	s.mux.Lock()
	defer s.mux.Unlock()

	txs := make([]core.Transaction, len(s.txs))
	for i, tx := range s.txs {
		txs[i] = *tx
	}

	return txs
}
