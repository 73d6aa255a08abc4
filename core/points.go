package core

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const MinPointConversion int64 = 500

// PointToSabiRate is the number of sabiCash tokens issued per point.
var PointToSabiRate = decimal.New(5, -1)

// PointsForDistance awards one point per kilometer, rounded half up.
func PointsForDistance(km float64) int64 {
	if km <= 0 || math.IsNaN(km) {
		return 0
	}

	return int64(math.Round(km))
}

func SabiCashForPoints(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(PointToSabiRate)
}

func CanConvertPoints(points int64) bool {
	return points >= MinPointConversion
}

type PointsBalance struct {
	TotalPoints  int64      `json:"totalPoints"`
	LastEarnedAt *time.Time `json:"lastEarnedAt"`
}

type PointsEntryType string

const (
	PointsEntryEarn    PointsEntryType = "earn"
	PointsEntryConvert PointsEntryType = "convert"
	PointsEntryTask    PointsEntryType = "task"
	PointsEntryBonus   PointsEntryType = "bonus"
)

type PointsHistoryEntry struct {
	ID          string          `json:"id"`
	Type        PointsEntryType `json:"type"`
	Points      int64           `json:"points"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type PointsHistory struct {
	Items []*PointsHistoryEntry `json:"items"`
	Total int                   `json:"total"`
}

type ConversionRequest struct {
	Points        int64  `json:"points"`
	WalletAddress string `json:"walletAddress"`
}

type ConversionValidation struct {
	Valid          bool            `json:"valid"`
	SabiCashAmount decimal.Decimal `json:"sabiCashAmount"`
	Message        string          `json:"message,omitempty"`
}

type ConversionResult struct {
	PointsConverted int64           `json:"pointsConverted"`
	SabiCashAmount  decimal.Decimal `json:"sabiCashAmount"`
	NewPointBalance int64           `json:"newPointBalance"`
	TransactionID   string          `json:"transactionId"`
}

type PointsService interface {
	Balance(ctx context.Context, token string) (*PointsBalance, error)
	History(ctx context.Context, token string, limit, offset int) (*PointsHistory, error)
	ValidateConversion(ctx context.Context, token string, points int64, walletAddress string) (*ConversionValidation, error)
	Convert(ctx context.Context, token string, points int64, walletAddress string) (*ConversionResult, error)
	ConvertValidated(ctx context.Context, token string, points int64, walletAddress string) (*ConversionResult, error)
	Reconcile(ctx context.Context, token string, before *PointsBalance, points int64) (bool, *PointsBalance, error)
}
