package task

import (
	"context"
	"testing"

	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/handler/demo/demotest"
	"github.com/sabicash/sabicash/service/sabiapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasks(t *testing.T) {
	env := demotest.Start(t)
	s := New(sabiapi.New(sabiapi.Config{BaseURL: env.CashURL}, demotest.Logger()))
	token := env.Token(t, demotest.RiderEmail, demotest.RiderPassword)
	ctx := context.Background()

	tasks, err := s.List(ctx, token)
	require.NoError(t, err)
	require.NotEmpty(t, tasks)
	assert.False(t, tasks[0].Completed)

	done, err := s.Complete(ctx, token, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, tasks[0].Points, done.PointsAwarded)
	assert.Equal(t, 1200+tasks[0].Points, done.NewPointBalance)

	_, err = s.Complete(ctx, token, tasks[0].ID)
	assert.True(t, core.IsErrValidation(err))

	_, err = s.Complete(ctx, token, "missing")
	assert.True(t, core.IsErrNotFound(err))

	tasks, err = s.List(ctx, token)
	require.NoError(t, err)
	assert.True(t, tasks[0].Completed)
}
