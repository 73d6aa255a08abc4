package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Points      int64  `json:"points"`
	Type        string `json:"type,omitempty"`
	Active      bool   `json:"active"`
	Completed   bool   `json:"completed,omitempty"`
}

type TaskCompletion struct {
	TaskID          string `json:"taskId"`
	PointsAwarded   int64  `json:"pointsAwarded"`
	NewPointBalance int64  `json:"newPointBalance"`
}

type TaskService interface {
	List(ctx context.Context, token string) ([]*Task, error)
	Complete(ctx context.Context, token, taskID string) (*TaskCompletion, error)
}

type MiningPlan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DailyRate    decimal.Decimal `json:"dailyRate"`
	DurationDays int             `json:"durationDays"`
	MinStake     decimal.Decimal `json:"minStake"`
	Active       bool            `json:"active"`
}

type Stake struct {
	ID             string          `json:"id"`
	PlanID         string          `json:"planId"`
	Amount         decimal.Decimal `json:"amount"`
	StartedAt      time.Time       `json:"startedAt"`
	RewardsAccrued decimal.Decimal `json:"rewardsAccrued"`
}

type MiningService interface {
	Plans(ctx context.Context, token string) ([]*MiningPlan, error)
	Stakes(ctx context.Context, token string) ([]*Stake, error)
}
