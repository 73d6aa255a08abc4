package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Analytics struct {
	TotalUsers             int64           `json:"totalUsers"`
	ActiveUsers            int64           `json:"activeUsers"`
	TotalPointsIssued      int64           `json:"totalPointsIssued"`
	TotalSabiCashConverted decimal.Decimal `json:"totalSabiCashConverted"`
	TotalTransactions      int64           `json:"totalTransactions"`
}

type AdminUser struct {
	User
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Transaction struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Type           string          `json:"type"`
	Points         int64           `json:"points"`
	SabiCashAmount decimal.Decimal `json:"sabiCashAmount"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type ContractParams struct {
	TokenAddress   string          `json:"tokenAddress"`
	ConversionRate decimal.Decimal `json:"conversionRate"`
	MinConversion  int64           `json:"minConversion"`
	StakingAPY     decimal.Decimal `json:"stakingApy"`
	Paused         bool            `json:"paused"`
}

type AdminService interface {
	Analytics(ctx context.Context, token string) (*Analytics, error)

	ListUsers(ctx context.Context, token string) ([]*AdminUser, error)
	UpdateUserStatus(ctx context.Context, token, userID, status string) (*AdminUser, error)
	DeleteUser(ctx context.Context, token, userID string) error

	ListTransactions(ctx context.Context, token string) ([]*Transaction, error)

	ListTasks(ctx context.Context, token string) ([]*Task, error)
	CreateTask(ctx context.Context, token string, task *Task) (*Task, error)
	UpdateTask(ctx context.Context, token string, task *Task) (*Task, error)
	DeleteTask(ctx context.Context, token, taskID string) error

	ListMiningPlans(ctx context.Context, token string) ([]*MiningPlan, error)
	CreateMiningPlan(ctx context.Context, token string, plan *MiningPlan) (*MiningPlan, error)
	UpdateMiningPlan(ctx context.Context, token string, plan *MiningPlan) (*MiningPlan, error)
	DeleteMiningPlan(ctx context.Context, token, planID string) error

	ContractParams(ctx context.Context, token string) (*ContractParams, error)
	UpdateContractParams(ctx context.Context, token string, params *ContractParams) (*ContractParams, error)
}
