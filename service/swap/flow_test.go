package swap

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sabicash/sabicash/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSwaps struct {
	mux       sync.Mutex
	quoted    []int64
	cancelled int
	quoteErr  error
	execErr   error

	// blockFirst holds the first quote until its context is cancelled
	blockFirst   bool
	quoteStarted chan struct{}

	execStarted chan struct{}
	execRelease chan struct{}
	execCtxErr  error
}

func (f *fakeSwaps) TokenInfo(ctx context.Context, address common.Address) (core.Token, error) {
	return core.Token{Address: address}, nil
}

func (f *fakeSwaps) Quote(ctx context.Context, tokenIn, tokenOut core.Token, amountIn *big.Int) (*core.SwapQuote, error) {
	f.mux.Lock()
	f.quoted = append(f.quoted, amountIn.Int64())
	block := f.blockFirst && len(f.quoted) == 1
	err := f.quoteErr
	f.mux.Unlock()

	if block {
		close(f.quoteStarted)
		<-ctx.Done()
		f.mux.Lock()
		f.cancelled++
		f.mux.Unlock()
		return nil, ctx.Err()
	}

	if err != nil {
		return nil, err
	}

	return &core.SwapQuote{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: new(big.Int).Mul(amountIn, big.NewInt(2)),
	}, nil
}

func (f *fakeSwaps) Execute(ctx context.Context, tokenIn, tokenOut core.Token, amountIn *big.Int, recipient common.Address, signer *bind.TransactOpts) (*core.SwapResult, error) {
	if f.execStarted != nil {
		close(f.execStarted)
		<-f.execRelease
	}

	f.execCtxErr = ctx.Err()
	if f.execErr != nil {
		return nil, f.execErr
	}

	return &core.SwapResult{AmountOut: new(big.Int).Mul(amountIn, big.NewInt(2)), Success: true}, nil
}

func (f *fakeSwaps) quotes() []int64 {
	f.mux.Lock()
	defer f.mux.Unlock()
	return append([]int64(nil), f.quoted...)
}

func input(amount int64) Input {
	return Input{TokenIn: sabi, TokenOut: usdc, AmountIn: big.NewInt(amount)}
}

func waitState(t *testing.T, f *Flow, state State) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.Snapshot().State == state
	}, 2*time.Second, time.Millisecond, "waiting for %s", state)

	return f.Snapshot()
}

func readyFlow(t *testing.T, swaps *fakeSwaps) *Flow {
	f := NewFlow(swaps, 10*time.Millisecond, discard)
	require.NoError(t, f.SetInput(input(7)))
	waitState(t, f, StateQuoteReady)
	return f
}

func TestFlowDebounce(t *testing.T) {
	swaps := &fakeSwaps{}
	f := NewFlow(swaps, 50*time.Millisecond, discard)
	defer f.Close()

	var states []State
	var mux sync.Mutex
	f.OnChange = func(s Snapshot) {
		mux.Lock()
		states = append(states, s.State)
		mux.Unlock()
	}

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, f.SetInput(input(i)))
		assert.Equal(t, StateQuotePending, f.Snapshot().State)
	}

	snap := waitState(t, f, StateQuoteReady)
	assert.Equal(t, []int64{5}, swaps.quotes())
	assert.Equal(t, int64(10), snap.Quote.AmountOut.Int64())

	mux.Lock()
	defer mux.Unlock()
	assert.Equal(t, StateQuoteReady, states[len(states)-1])
	assert.Len(t, states, 6)
}

func TestFlowEmptyAmountIsIdle(t *testing.T) {
	swaps := &fakeSwaps{}
	f := NewFlow(swaps, 10*time.Millisecond, discard)
	defer f.Close()

	require.NoError(t, f.SetInput(input(0)))
	assert.Equal(t, StateIdle, f.Snapshot().State)

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, swaps.quotes())
}

func TestFlowQuoteError(t *testing.T) {
	swaps := &fakeSwaps{quoteErr: core.NewError(core.ErrRouteNotFound, "no pools")}
	f := NewFlow(swaps, 10*time.Millisecond, discard)
	defer f.Close()

	require.NoError(t, f.SetInput(input(3)))
	require.Eventually(t, func() bool {
		return f.Snapshot().Err != nil
	}, 2*time.Second, time.Millisecond)

	snap := f.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.True(t, core.IsErrRouteNotFound(snap.Err))
}

func TestFlowCancelsStaleQuote(t *testing.T) {
	swaps := &fakeSwaps{blockFirst: true, quoteStarted: make(chan struct{})}
	f := NewFlow(swaps, 10*time.Millisecond, discard)
	defer f.Close()

	require.NoError(t, f.SetInput(input(1)))
	<-swaps.quoteStarted

	require.NoError(t, f.SetInput(input(2)))
	assert.Equal(t, StateQuotePending, f.Snapshot().State)

	snap := waitState(t, f, StateQuoteReady)
	assert.Equal(t, int64(2), snap.Input.AmountIn.Int64())
	assert.Equal(t, []int64{1, 2}, swaps.quotes())

	assert.Eventually(t, func() bool {
		swaps.mux.Lock()
		defer swaps.mux.Unlock()
		return swaps.cancelled == 1
	}, time.Second, time.Millisecond)
}

func TestFlowPublishesInOrder(t *testing.T) {
	swaps := &fakeSwaps{}
	f := NewFlow(swaps, 10*time.Millisecond, discard)
	defer f.Close()

	gate := make(chan struct{})
	var once sync.Once
	var mux sync.Mutex
	var seen []Snapshot
	f.OnChange = func(s Snapshot) {
		// hold the first ready event until newer input is committed
		if s.State == StateQuoteReady {
			once.Do(func() { <-gate })
		}

		mux.Lock()
		seen = append(seen, s)
		mux.Unlock()
	}

	require.NoError(t, f.SetInput(input(1)))
	waitState(t, f, StateQuoteReady)

	done := make(chan error, 1)
	go func() { done <- f.SetInput(input(2)) }()
	waitState(t, f, StateQuotePending)

	close(gate)
	require.NoError(t, <-done)
	waitState(t, f, StateQuoteReady)

	require.Eventually(t, func() bool {
		mux.Lock()
		defer mux.Unlock()
		last := seen[len(seen)-1]
		return last.State == StateQuoteReady && last.Input.AmountIn.Int64() == 2
	}, 2*time.Second, time.Millisecond)

	mux.Lock()
	defer mux.Unlock()
	for i := 1; i < len(seen); i++ {
		assert.LessOrEqual(t, seen[i-1].Input.AmountIn.Int64(), seen[i].Input.AmountIn.Int64(), "event %d", i)
	}
}

func TestFlowSwap(t *testing.T) {
	swaps := &fakeSwaps{execStarted: make(chan struct{}), execRelease: make(chan struct{})}
	f := readyFlow(t, swaps)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Swap(ctx, common.Address{}, &bind.TransactOpts{})
		done <- err
	}()

	<-swaps.execStarted
	assert.Equal(t, StateSwapping, f.Snapshot().State)
	assert.ErrorIs(t, f.SetInput(input(9)), ErrSwapInProgress)
	assert.ErrorIs(t, f.Reset(), ErrSwapInProgress)

	// a submitted swap is not cancellable
	cancel()
	close(swaps.execRelease)
	require.NoError(t, <-done)
	assert.NoError(t, swaps.execCtxErr)

	snap := f.Snapshot()
	assert.Equal(t, StateSwapSucceeded, snap.State)
	assert.True(t, snap.Result.Success)
	assert.Equal(t, int64(14), snap.Result.AmountOut.Int64())

	require.NoError(t, f.Reset())
	assert.Equal(t, StateIdle, f.Snapshot().State)
}

func TestFlowSwapFailed(t *testing.T) {
	swaps := &fakeSwaps{execErr: core.WrapError(core.ErrSwapExecution, errors.New("reverted"))}
	f := readyFlow(t, swaps)
	defer f.Close()

	_, err := f.Swap(context.Background(), common.Address{}, &bind.TransactOpts{})
	assert.True(t, core.IsErrSwapExecution(err))

	snap := f.Snapshot()
	assert.Equal(t, StateSwapFailed, snap.State)
	assert.Equal(t, err, snap.Err)

	// a new input starts over
	require.NoError(t, f.SetInput(input(8)))
	waitState(t, f, StateQuoteReady)
}

func TestFlowSwapNeedsQuote(t *testing.T) {
	f := NewFlow(&fakeSwaps{}, 10*time.Millisecond, discard)
	defer f.Close()

	_, err := f.Swap(context.Background(), common.Address{}, &bind.TransactOpts{})
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestFlowClose(t *testing.T) {
	swaps := &fakeSwaps{}
	f := NewFlow(swaps, 20*time.Millisecond, discard)

	require.NoError(t, f.SetInput(input(4)))
	f.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, swaps.quotes())
	assert.ErrorIs(t, f.SetInput(input(5)), ErrFlowClosed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "quote_ready", StateQuoteReady.String())
	assert.Equal(t, "unknown", State(42).String())
}
