package demo

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sabicash/sabicash/core"
	"github.com/shopspring/decimal"
)

const codeInsufficientPoints = "insufficient_points"

func (s *Server) pointsBalance(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)

	s.mux.Lock()
	a := s.accounts[c.Subject]
	balance := core.PointsBalance{
		TotalPoints:  a.Points,
		LastEarnedAt: a.LastEarnedAt,
	}
	s.mux.Unlock()

	s.render(w, http.StatusOK, balance)
}

func (s *Server) pointsHistory(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	s.mux.Lock()
	entries := s.history[c.Subject]
	total := len(entries)

	// newest first
	items := make([]*core.PointsHistoryEntry, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(items) < limit; i-- {
		items = append(items, entries[i])
	}
	s.mux.Unlock()

	s.render(w, http.StatusOK, core.PointsHistory{Items: items, Total: total})
}

// checkConversion requires s.mux. It returns an http status and error code
// when the request must be rejected.
func (s *Server) checkConversion(a *account, req core.ConversionRequest) (int, string, string) {
	if s.contract.Paused {
		return http.StatusBadRequest, "", "conversions are paused"
	}

	if req.Points < s.contract.MinConversion {
		return http.StatusBadRequest, "", fmt.Sprintf("minimum conversion is %d points", s.contract.MinConversion)
	}

	if req.WalletAddress == "" {
		return http.StatusBadRequest, "", "wallet address is required"
	}

	if req.Points > a.Points {
		return http.StatusBadRequest, codeInsufficientPoints, "insufficient points"
	}

	return 0, "", ""
}

func (s *Server) sabiCashFor(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(s.contract.ConversionRate)
}

func (s *Server) validateConversion(w http.ResponseWriter, r *http.Request) {
	var req core.ConversionRequest
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	c := claimsFrom(r)

	s.mux.Lock()
	defer s.mux.Unlock()

	resp := core.ConversionValidation{Valid: true, SabiCashAmount: s.sabiCashFor(req.Points)}
	if status, _, msg := s.checkConversion(s.accounts[c.Subject], req); status != 0 {
		resp = core.ConversionValidation{Valid: false, SabiCashAmount: decimal.Zero, Message: msg}
	}

	s.render(w, http.StatusOK, resp)
}

func (s *Server) convertPoints(w http.ResponseWriter, r *http.Request) {
	var req core.ConversionRequest
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	c := claimsFrom(r)

	s.mux.Lock()
	defer s.mux.Unlock()

	a := s.accounts[c.Subject]
	if status, code, msg := s.checkConversion(a, req); status != 0 {
		s.error(w, status, code, msg)
		return
	}

	amount := s.sabiCashFor(req.Points)
	a.Points -= req.Points

	tx := &core.Transaction{
		ID:             uuid.NewString(),
		UserID:         a.ID,
		Type:           "conversion",
		Points:         req.Points,
		SabiCashAmount: amount,
		Status:         "completed",
		CreatedAt:      s.now(),
	}
	s.txs = append(s.txs, tx)
	s.appendHistory(a.ID, core.PointsEntryConvert, -req.Points, "converted to sabiCash", tx.CreatedAt)

	s.logger.Info("points converted", "user", a.Email, "points", req.Points, "amount", amount)

	s.render(w, http.StatusOK, core.ConversionResult{
		PointsConverted: req.Points,
		SabiCashAmount:  amount,
		NewPointBalance: a.Points,
		TransactionID:   tx.ID,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}

	return v
}
