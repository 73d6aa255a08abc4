package admin

import (
	"context"
	"testing"

	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/handler/demo/demotest"
	"github.com/sabicash/sabicash/service/sabiapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (core.AdminService, *demotest.Env) {
	env := demotest.Start(t)
	client := sabiapi.New(sabiapi.Config{BaseURL: env.CashURL}, demotest.Logger())
	return New(client), env
}

func TestAdminRequiresAdmin(t *testing.T) {
	s, env := setup(t)
	token := env.Token(t, demotest.RiderEmail, demotest.RiderPassword)

	_, err := s.Analytics(context.Background(), token)
	assert.True(t, core.IsErrAuth(err))

	_, err = s.ListUsers(context.Background(), "")
	assert.True(t, core.IsErrAuth(err))
}

func TestAdminUsers(t *testing.T) {
	s, env := setup(t)
	ctx := context.Background()
	token := env.Token(t, demotest.AdminEmail, demotest.AdminPassword)

	users, err := s.ListUsers(ctx, token)
	require.NoError(t, err)
	require.Len(t, users, 3)

	var rider *core.AdminUser
	for _, u := range users {
		if u.Email == demotest.RiderEmail {
			rider = u
		}
	}
	require.NotNil(t, rider)

	updated, err := s.UpdateUserStatus(ctx, token, rider.ID, "suspended")
	require.NoError(t, err)
	assert.Equal(t, "suspended", updated.Status)

	_, err = s.UpdateUserStatus(ctx, token, rider.ID, "banned-forever")
	assert.True(t, core.IsErrValidation(err))

	analytics, err := s.Analytics(ctx, token)
	require.NoError(t, err)
	assert.EqualValues(t, 3, analytics.TotalUsers)
	assert.EqualValues(t, 2, analytics.ActiveUsers)
	assert.EqualValues(t, 1200, analytics.TotalPointsIssued)

	require.NoError(t, s.DeleteUser(ctx, token, rider.ID))
	err = s.DeleteUser(ctx, token, rider.ID)
	assert.True(t, core.IsErrNotFound(err))
}

func TestAdminTasksCRUD(t *testing.T) {
	s, env := setup(t)
	ctx := context.Background()
	token := env.Token(t, demotest.AdminEmail, demotest.AdminPassword)

	created, err := s.CreateTask(ctx, token, &core.Task{Title: "Join the channel", Points: 75, Active: true})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	created.Points = 80
	updated, err := s.UpdateTask(ctx, token, created)
	require.NoError(t, err)
	assert.EqualValues(t, 80, updated.Points)

	tasks, err := s.ListTasks(ctx, token)
	require.NoError(t, err)
	assert.Len(t, tasks, 4)

	require.NoError(t, s.DeleteTask(ctx, token, created.ID))

	_, err = s.UpdateTask(ctx, token, &core.Task{})
	assert.True(t, core.IsErrValidation(err))

	_, err = s.CreateTask(ctx, token, &core.Task{Title: "no points"})
	assert.True(t, core.IsErrValidation(err))
}

func TestAdminMiningPlansAndContract(t *testing.T) {
	s, env := setup(t)
	ctx := context.Background()
	token := env.Token(t, demotest.AdminEmail, demotest.AdminPassword)

	plan, err := s.CreateMiningPlan(ctx, token, &core.MiningPlan{
		Name:         "Whale",
		DailyRate:    decimal.RequireFromString("2.5"),
		DurationDays: 180,
		MinStake:     decimal.NewFromInt(10000),
		Active:       true,
	})
	require.NoError(t, err)

	plan.Active = false
	plan, err = s.UpdateMiningPlan(ctx, token, plan)
	require.NoError(t, err)
	assert.False(t, plan.Active)

	plans, err := s.ListMiningPlans(ctx, token)
	require.NoError(t, err)
	assert.Len(t, plans, 3)
	require.NoError(t, s.DeleteMiningPlan(ctx, token, plan.ID))

	params, err := s.ContractParams(ctx, token)
	require.NoError(t, err)
	assert.True(t, params.ConversionRate.Equal(core.PointToSabiRate))
	assert.Equal(t, core.MinPointConversion, params.MinConversion)

	params.Paused = true
	params, err = s.UpdateContractParams(ctx, token, params)
	require.NoError(t, err)
	assert.True(t, params.Paused)

	txs, err := s.ListTransactions(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
