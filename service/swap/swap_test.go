package swap

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sabicash/sabicash/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	mock.Mock
	name string
}

func (m *mockEngine) Name() string { return m.name }

func (m *mockEngine) Spender() common.Address { return routerAddr }

func (m *mockEngine) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*quote, error) {
	args := m.Called(tokenIn, tokenOut, amountIn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quote), args.Error(1)
}

func (m *mockEngine) Requote(ctx context.Context, route []core.SwapHop, amountIn *big.Int) (*big.Int, error) {
	args := m.Called(route, amountIn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockEngine) Swap(opts *bind.TransactOpts, route []core.SwapHop, recipient common.Address, amountIn, minOut, deadline *big.Int) (*types.Transaction, error) {
	args := m.Called(opts, route, recipient, amountIn, minOut, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

// fakeToken keeps allowances in memory and grants them on approve.
type fakeToken struct {
	allowance  *big.Int
	approvals  int
	approveErr error
	metaCalls  int
}

func (f *fakeToken) Symbol(ctx context.Context) (string, error) {
	f.metaCalls++
	return "SABI", nil
}

func (f *fakeToken) Decimals(ctx context.Context) (uint8, error) {
	return 6, nil
}

func (f *fakeToken) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return f.allowance, nil
}

func (f *fakeToken) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	if f.approveErr != nil {
		return nil, f.approveErr
	}

	f.approvals++
	f.allowance = amount
	return types.NewTx(&types.LegacyTx{Nonce: uint64(100 + f.approvals)}), nil
}

type fixture struct {
	svc      *service
	router   *mockEngine
	fallback *mockEngine
	token    *fakeToken
	inits    int
	initErr  error
	receipts map[common.Hash]uint64
}

func newFixture() *fixture {
	f := &fixture{
		router:   &mockEngine{name: "router"},
		fallback: &mockEngine{name: "pool"},
		token:    &fakeToken{allowance: new(big.Int)},
		receipts: map[common.Hash]uint64{},
	}

	f.svc = newService(Config{PoolFee: 3000, SlippageBps: 50, Deadline: time.Minute}, wrapped, discard)
	f.svc.fallback = f.fallback
	f.svc.newRouter = func(ctx context.Context) (engine, error) {
		f.inits++
		if f.initErr != nil {
			return nil, f.initErr
		}
		return f.router, nil
	}
	f.svc.erc20 = func(address common.Address) tokenContract { return f.token }
	f.svc.wait = func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		status, ok := f.receipts[tx.Hash()]
		if !ok {
			status = types.ReceiptStatusSuccessful
		}
		return &types.Receipt{Status: status, TxHash: tx.Hash()}, nil
	}

	return f
}

var (
	sabi = core.Token{Address: tokenA, Symbol: "SABI", Decimals: 6}
	usdc = core.Token{Address: tokenB, Symbol: "USDC", Decimals: 6}
	eth  = core.Token{Symbol: "ETH", Decimals: 18, Native: true}
	weth = core.Token{Address: wrapped, Symbol: "WETH", Decimals: 18}
)

func TestQuoteSameToken(t *testing.T) {
	f := newFixture()

	q, err := f.svc.Quote(context.Background(), sabi, sabi, big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), q.AmountOut.Int64())
	assert.Equal(t, int64(42), q.MinimumAmountOut.Int64())
	assert.True(t, q.PriceImpactPercent.IsZero())
	assert.Empty(t, q.Route)

	assert.Zero(t, f.inits)
	f.router.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything)
	f.fallback.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuoteValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Quote(ctx, sabi, usdc, big.NewInt(0))
	assert.True(t, core.IsErrValidation(err))

	_, err = f.svc.Quote(ctx, sabi, usdc, nil)
	assert.True(t, core.IsErrValidation(err))

	_, err = f.svc.Quote(ctx, eth, weth, big.NewInt(1))
	assert.True(t, core.IsErrUnsupportedPair(err))

	_, err = f.svc.Quote(ctx, sabi, core.Token{Symbol: "?"}, big.NewInt(1))
	assert.True(t, core.IsErrUnsupportedPair(err))

	assert.Zero(t, f.inits)
}

func TestQuoteUsesRouter(t *testing.T) {
	f := newFixture()
	route := []core.SwapHop{{TokenIn: tokenA, TokenOut: tokenB, Fee: 3000}}
	amountIn := big.NewInt(1_000_000)

	f.router.On("Quote", tokenA, tokenB, amountIn).Return(&quote{route: route, amountOut: big.NewInt(1_000_000), gas: 90000}, nil)
	f.router.On("Requote", route, big.NewInt(1000)).Return(big.NewInt(1010), nil)

	q, err := f.svc.Quote(context.Background(), sabi, usdc, amountIn)
	require.NoError(t, err)

	assert.Equal(t, "router", q.Engine)
	assert.Equal(t, int64(995_000), q.MinimumAmountOut.Int64())
	assert.Equal(t, "0.99", q.PriceImpactPercent.String())
	assert.Equal(t, uint64(90000), q.GasEstimate)
	assert.Equal(t, route, q.Route)
	f.router.AssertExpectations(t)
}

func TestQuoteFallsBackToPool(t *testing.T) {
	f := newFixture()
	f.initErr = errors.New("no pools discovered")
	route := []core.SwapHop{{TokenIn: wrapped, TokenOut: tokenB, Fee: 3000}}
	amountIn := big.NewInt(500)

	f.fallback.On("Quote", wrapped, tokenB, amountIn).Return(&quote{route: route, amountOut: big.NewInt(1500)}, nil)

	for i := 0; i < 2; i++ {
		q, err := f.svc.Quote(context.Background(), eth, usdc, amountIn)
		require.NoError(t, err)
		assert.Equal(t, "pool", q.Engine)
		assert.Equal(t, int64(1500), q.AmountOut.Int64())
		// too small for a reference quote
		assert.True(t, q.PriceImpactPercent.IsZero())
	}

	assert.Equal(t, 1, f.inits)
	f.router.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuoteRouteNotFound(t *testing.T) {
	f := newFixture()
	f.router.On("Quote", tokenA, tokenB, mock.Anything).Return(nil, core.NewError(core.ErrRouteNotFound, "no pools"))

	_, err := f.svc.Quote(context.Background(), sabi, usdc, big.NewInt(10))
	assert.True(t, core.IsErrRouteNotFound(err))
}

func TestExecuteApprovesThenSwaps(t *testing.T) {
	f := newFixture()
	signer := &bind.TransactOpts{From: common.HexToAddress("0x1111111111111111111111111111111111111111")}
	route := []core.SwapHop{{TokenIn: tokenA, TokenOut: tokenB, Fee: 3000}}
	amountIn := big.NewInt(100)
	swapTx := types.NewTx(&types.LegacyTx{Nonce: 1})

	f.router.On("Quote", tokenA, tokenB, amountIn).Return(&quote{route: route, amountOut: big.NewInt(200)}, nil)
	f.router.On("Swap", mock.Anything, route, signer.From, amountIn, big.NewInt(199), mock.Anything).Return(swapTx, nil)

	result, err := f.svc.Execute(context.Background(), sabi, usdc, amountIn, common.Address{}, signer)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, swapTx.Hash(), result.Hash)
	assert.Equal(t, int64(200), result.AmountOut.Int64())
	require.NotNil(t, result.ApprovalHash)
	assert.Equal(t, 1, f.token.approvals)

	// the allowance is in place now, no second approval
	result, err = f.svc.Execute(context.Background(), sabi, usdc, amountIn, common.Address{}, signer)
	require.NoError(t, err)
	assert.Nil(t, result.ApprovalHash)
	assert.Equal(t, 1, f.token.approvals)

	opts := f.router.Calls[len(f.router.Calls)-1].Arguments.Get(0).(*bind.TransactOpts)
	assert.Nil(t, opts.Value)
}

func TestExecuteNativeInput(t *testing.T) {
	f := newFixture()
	signer := &bind.TransactOpts{From: common.HexToAddress("0x2222222222222222222222222222222222222222")}
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")
	route := []core.SwapHop{{TokenIn: wrapped, TokenOut: tokenB, Fee: 500}}
	amountIn := big.NewInt(1e15)

	f.router.On("Quote", wrapped, tokenB, amountIn).Return(&quote{route: route, amountOut: big.NewInt(3)}, nil)
	f.router.On("Requote", route, mock.Anything).Return(big.NewInt(0), nil)
	f.router.On("Swap", mock.Anything, route, recipient, amountIn, mock.Anything, mock.Anything).
		Return(types.NewTx(&types.LegacyTx{Nonce: 2}), nil)

	result, err := f.svc.Execute(context.Background(), eth, usdc, amountIn, recipient, signer)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Nil(t, result.ApprovalHash)
	assert.Zero(t, f.token.approvals)

	opts := f.router.Calls[len(f.router.Calls)-1].Arguments.Get(0).(*bind.TransactOpts)
	assert.Equal(t, amountIn, opts.Value)
}

func TestExecuteReverted(t *testing.T) {
	f := newFixture()
	signer := &bind.TransactOpts{From: common.HexToAddress("0x1111111111111111111111111111111111111111")}
	route := []core.SwapHop{{TokenIn: tokenA, TokenOut: tokenB, Fee: 3000}}
	swapTx := types.NewTx(&types.LegacyTx{Nonce: 3})
	f.receipts[swapTx.Hash()] = types.ReceiptStatusFailed

	f.router.On("Quote", tokenA, tokenB, mock.Anything).Return(&quote{route: route, amountOut: big.NewInt(10)}, nil)
	f.router.On("Swap", mock.Anything, route, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(swapTx, nil)

	_, err := f.svc.Execute(context.Background(), sabi, usdc, big.NewInt(5), common.Address{}, signer)
	assert.True(t, core.IsErrSwapExecution(err))
	assert.Contains(t, err.Error(), swapTx.Hash().Hex())
}

func TestExecuteRetriesAfterInterruptedSwap(t *testing.T) {
	f := newFixture()
	signer := &bind.TransactOpts{From: common.HexToAddress("0x1111111111111111111111111111111111111111")}
	route := []core.SwapHop{{TokenIn: tokenA, TokenOut: tokenB, Fee: 3000}}
	amountIn := big.NewInt(5)

	f.router.On("Quote", tokenA, tokenB, amountIn).Return(&quote{route: route, amountOut: big.NewInt(10)}, nil)
	f.router.On("Swap", mock.Anything, route, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("user rejected transaction")).Once()
	f.router.On("Swap", mock.Anything, route, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(types.NewTx(&types.LegacyTx{Nonce: 4}), nil).Once()

	_, err := f.svc.Execute(context.Background(), sabi, usdc, amountIn, common.Address{}, signer)
	assert.True(t, core.IsErrSwapExecution(err))
	assert.Contains(t, err.Error(), "user rejected transaction")
	assert.Equal(t, 1, f.token.approvals)

	result, err := f.svc.Execute(context.Background(), sabi, usdc, amountIn, common.Address{}, signer)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Nil(t, result.ApprovalHash)
	assert.Equal(t, 1, f.token.approvals)
}

func TestExecuteValidation(t *testing.T) {
	f := newFixture()
	signer := &bind.TransactOpts{}

	_, err := f.svc.Execute(context.Background(), sabi, usdc, big.NewInt(1), common.Address{}, nil)
	assert.True(t, core.IsErrValidation(err))

	_, err = f.svc.Execute(context.Background(), sabi, sabi, big.NewInt(1), common.Address{}, signer)
	assert.True(t, core.IsErrValidation(err))
}

func TestTokenInfoCached(t *testing.T) {
	f := newFixture()

	for i := 0; i < 3; i++ {
		token, err := f.svc.TokenInfo(context.Background(), tokenA)
		require.NoError(t, err)
		assert.Equal(t, "SABI", token.Symbol)
		assert.Equal(t, uint8(6), token.Decimals)
		assert.Equal(t, tokenA, token.Address)
	}

	assert.Equal(t, 1, f.token.metaCalls)
}

func TestMinimumOut(t *testing.T) {
	assert.Equal(t, int64(995), minimumOut(big.NewInt(1000), 50).Int64())
	assert.Equal(t, int64(1000), minimumOut(big.NewInt(1000), 0).Int64())
	assert.Equal(t, int64(0), minimumOut(big.NewInt(1), 50).Int64())
}
