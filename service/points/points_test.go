package points

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/handler/demo/demotest"
	"github.com/sabicash/sabicash/service/sabiapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*demotest.Env, core.PointsService, string) {
	env := demotest.Start(t)
	client := sabiapi.New(sabiapi.Config{BaseURL: env.CashURL}, demotest.Logger())
	token := env.Token(t, demotest.RiderEmail, demotest.RiderPassword)
	return env, New(client, demotest.Logger()), token
}

func TestConvertBelowMinimumSkipsNetwork(t *testing.T) {
	env, s, token := setup(t)
	ctx := context.Background()
	before := env.TotalCalls()

	for _, points := range []int64{0, 1, 250, 499} {
		_, err := s.Convert(ctx, token, points, "wallet")
		assert.True(t, core.IsErrValidation(err), "points %d", points)

		v, err := s.ValidateConversion(ctx, token, points, "wallet")
		require.NoError(t, err)
		assert.False(t, v.Valid)
		assert.NotEmpty(t, v.Message)
	}

	assert.Equal(t, before, env.TotalCalls())
}

func TestValidateConversion(t *testing.T) {
	env, s, token := setup(t)

	v, err := s.ValidateConversion(context.Background(), token, 500, "addr")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.True(t, v.SabiCashAmount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 1, env.Calls(http.MethodPost, "/api/points/validate-conversion"))

	// more than the rider holds
	v, err = s.ValidateConversion(context.Background(), token, 5000, "addr")
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestConvertUpdatesBalance(t *testing.T) {
	_, s, token := setup(t)
	ctx := context.Background()

	before, err := s.Balance(ctx, token)
	require.NoError(t, err)
	require.EqualValues(t, 1200, before.TotalPoints)
	require.NotNil(t, before.LastEarnedAt)

	result, err := s.ConvertValidated(ctx, token, 500, "addr")
	require.NoError(t, err)
	assert.EqualValues(t, 500, result.PointsConverted)
	assert.True(t, result.SabiCashAmount.Equal(decimal.NewFromInt(250)))
	assert.EqualValues(t, 700, result.NewPointBalance)
	assert.NotEmpty(t, result.TransactionID)

	after, err := s.Balance(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, before.TotalPoints-500, after.TotalPoints)

	applied, current, err := s.Reconcile(ctx, token, before, 500)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.EqualValues(t, 700, current.TotalPoints)

	history, err := s.History(ctx, token, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 2, history.Total)
	assert.Equal(t, core.PointsEntryConvert, history.Items[0].Type)
	assert.EqualValues(t, -500, history.Items[0].Points)
}

func TestConvertInsufficientPoints(t *testing.T) {
	env, s, token := setup(t)
	env.Demo.SetPoints(demotest.RiderEmail, 600)

	_, err := s.Convert(context.Background(), token, 1000, "addr")
	assert.True(t, core.IsErrInsufficientBalance(err))

	_, err = s.ConvertValidated(context.Background(), token, 1000, "addr")
	assert.True(t, core.IsErrValidation(err))
}

func TestConvertNetworkError(t *testing.T) {
	env, s, token := setup(t)
	env.Demo.Fail("/api/points/convert", http.StatusBadGateway)

	_, err := s.Convert(context.Background(), token, 500, "addr")
	assert.True(t, core.IsErrNetwork(err))

	before := &core.PointsBalance{TotalPoints: 1200}
	applied, _, err := s.Reconcile(context.Background(), token, before, 500)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestConvertConcurrentDuplicates(t *testing.T) {
	env, s, token := setup(t)
	ctx := context.Background()
	release := env.Hold(t, http.MethodPost, "/api/points/convert")

	var wg sync.WaitGroup
	results := make([]*core.ConversionResult, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Convert(ctx, token, 500, "addr")
		}(i)
	}

	require.Eventually(t, func() bool {
		return env.Calls(http.MethodPost, "/api/points/convert") >= 1
	}, 2*time.Second, time.Millisecond)

	// let the remaining submits pile up behind the held request
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()

	assert.Equal(t, 1, env.Calls(http.MethodPost, "/api/points/convert"))
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	assert.EqualValues(t, 700, results[0].NewPointBalance)

	balance, err := s.Balance(ctx, token)
	require.NoError(t, err)
	assert.EqualValues(t, 700, balance.TotalPoints)
	assert.Len(t, env.Demo.Transactions(), 1)
}

func TestReconcileNeedsBalance(t *testing.T) {
	env, s, token := setup(t)
	before := env.TotalCalls()

	_, _, err := s.Reconcile(context.Background(), token, nil, 500)
	assert.True(t, core.IsErrValidation(err))
	assert.Equal(t, before, env.TotalCalls())
}
