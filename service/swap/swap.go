package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/erc20"
	"github.com/shopspring/decimal"
	"github.com/zyedidia/generic/cache"
)

// Backend reads the chain, sends transactions and waits for receipts.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type Config struct {
	Quoter        string        `valid:"required"`
	Router        string        `valid:"required"`
	Factory       string        `valid:"-"`
	WrappedNative string        `valid:"required"`
	PoolFee       uint32        `valid:"-"`
	FeeTiers      []uint32      `valid:"-"`
	BaseTokens    []string      `valid:"-"`
	Tokens        []string      `valid:"-"`
	SlippageBps   int64         `valid:"-"`
	Deadline      time.Duration `valid:"-"`
}

const (
	defaultPoolFee     = 3000
	defaultSlippageBps = 50
	bpsDenominator     = 10000

	// reference quotes use amountIn / referenceDivisor to price the pool
	referenceDivisor = 1000
)

var defaultFeeTiers = []uint32{500, 3000, 10000}

// tokenContract is the ERC-20 surface used for metadata and approvals.
type tokenContract interface {
	Symbol(ctx context.Context) (string, error)
	Decimals(ctx context.Context) (uint8, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error)
}

func New(backend Backend, cfg Config, logger *slog.Logger) core.SwapService {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.PoolFee == 0 {
		cfg.PoolFee = defaultPoolFee
	}

	if len(cfg.FeeTiers) == 0 {
		cfg.FeeTiers = defaultFeeTiers
	}

	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = defaultSlippageBps
	}

	if cfg.SlippageBps < 0 || cfg.SlippageBps >= bpsDenominator {
		panic(fmt.Errorf("slippage %d bps out of range", cfg.SlippageBps))
	}

	if cfg.Deadline <= 0 {
		cfg.Deadline = 20 * time.Minute
	}

	logger = logger.With("service", "swap")
	c := bindContracts(backend, mustAddress(cfg.Factory, true), mustAddress(cfg.Quoter, false), mustAddress(cfg.Router, false))
	wrapped := mustAddress(cfg.WrappedNative, false)
	bases := append(mustAddresses(cfg.BaseTokens), wrapped)
	tokens := mustAddresses(cfg.Tokens)

	s := newService(cfg, wrapped, logger)
	s.fallback = &pool{contracts: c, fee: cfg.PoolFee, noFactory: cfg.Factory == ""}
	s.newRouter = func(ctx context.Context) (engine, error) {
		if cfg.Factory == "" {
			return nil, errors.New("factory not configured")
		}

		return discoverRouter(ctx, c, cfg.FeeTiers, bases, tokens, logger)
	}
	s.erc20 = func(address common.Address) tokenContract {
		return erc20.New(address, backend)
	}
	s.wait = func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return bind.WaitMined(ctx, backend, tx)
	}

	return s
}

func mustAddress(s string, optional bool) common.Address {
	if s == "" && optional {
		return common.Address{}
	}

	if !common.IsHexAddress(s) {
		panic(fmt.Errorf("invalid address %q", s))
	}

	return common.HexToAddress(s)
}

func mustAddresses(list []string) []common.Address {
	out := make([]common.Address, 0, len(list))
	for _, s := range list {
		out = append(out, mustAddress(s, false))
	}

	return out
}

func newService(cfg Config, wrapped common.Address, logger *slog.Logger) *service {
	return &service{
		cfg:     cfg,
		wrapped: wrapped,
		logger:  logger,
		now:     time.Now,
		tokens:  cache.New[common.Address, core.Token](256),
	}
}

type service struct {
	cfg     Config
	wrapped common.Address
	logger  *slog.Logger
	now     func() time.Time

	newRouter func(ctx context.Context) (engine, error)
	fallback  engine
	erc20     func(address common.Address) tokenContract
	wait      func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	engineMux sync.Mutex
	active    engine

	tokensMux sync.Mutex
	tokens    *cache.Cache[common.Address, core.Token]
}

// engine returns the routing engine, building it on first use. A failed
// build falls back to the single pool engine for the life of the service.
func (s *service) engine(ctx context.Context) engine {
	s.engineMux.Lock()
	defer s.engineMux.Unlock()

	if s.active != nil {
		return s.active
	}

	r, err := s.newRouter(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return s.fallback
		}

		s.logger.Warn("router init failed, use single pool", "fee", s.cfg.PoolFee, "err", err)
		s.active = s.fallback
		return s.active
	}

	s.active = r
	return s.active
}

// address maps native currency to its wrapped token.
func (s *service) address(t core.Token) common.Address {
	if t.Native {
		return s.wrapped
	}

	return t.Address
}

func (s *service) TokenInfo(ctx context.Context, address common.Address) (core.Token, error) {
	s.tokensMux.Lock()
	t, ok := s.tokens.Get(address)
	s.tokensMux.Unlock()
	if ok {
		return t, nil
	}

	c := s.erc20(address)
	symbol, err := c.Symbol(ctx)
	if err != nil {
		return core.Token{}, core.WrapError(core.ErrNetwork, err)
	}

	decimals, err := c.Decimals(ctx)
	if err != nil {
		return core.Token{}, core.WrapError(core.ErrNetwork, err)
	}

	t = core.Token{Address: address, Symbol: symbol, Decimals: decimals}

	s.tokensMux.Lock()
	s.tokens.Put(address, t)
	s.tokensMux.Unlock()

	return t, nil
}

func (s *service) Quote(ctx context.Context, tokenIn, tokenOut core.Token, amountIn *big.Int) (*core.SwapQuote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, core.NewError(core.ErrValidation, "amount must be positive")
	}

	if tokenIn.Same(tokenOut) {
		return &core.SwapQuote{
			TokenIn:            tokenIn,
			TokenOut:           tokenOut,
			AmountIn:           new(big.Int).Set(amountIn),
			AmountOut:          new(big.Int).Set(amountIn),
			MinimumAmountOut:   new(big.Int).Set(amountIn),
			PriceImpactPercent: decimal.Zero,
			Route:              []core.SwapHop{},
		}, nil
	}

	in, out := s.address(tokenIn), s.address(tokenOut)
	if in == (common.Address{}) || out == (common.Address{}) {
		return nil, core.NewError(core.ErrUnsupportedPair, "token address is required")
	}

	if in == out {
		return nil, core.NewError(core.ErrUnsupportedPair, "wrapping %s is not a swap", tokenIn.Symbol)
	}

	eng := s.engine(ctx)
	q, err := eng.Quote(ctx, in, out, amountIn)
	if err != nil {
		s.logger.Error("engine.Quote", "engine", eng.Name(), "in", in, "out", out, "err", err)
		return nil, err
	}

	return &core.SwapQuote{
		TokenIn:            tokenIn,
		TokenOut:           tokenOut,
		AmountIn:           new(big.Int).Set(amountIn),
		AmountOut:          q.amountOut,
		MinimumAmountOut:   minimumOut(q.amountOut, s.cfg.SlippageBps),
		PriceImpactPercent: s.priceImpact(ctx, eng, q, amountIn),
		Route:              q.route,
		GasEstimate:        q.gas,
		Engine:             eng.Name(),
	}, nil
}

func minimumOut(amountOut *big.Int, slippageBps int64) *big.Int {
	v := new(big.Int).Mul(amountOut, big.NewInt(bpsDenominator-slippageBps))
	return v.Quo(v, big.NewInt(bpsDenominator))
}

// priceImpact compares the quoted rate with the rate of a small reference
// trade on the same route. It is zero when no reference can be priced.
func (s *service) priceImpact(ctx context.Context, eng engine, q *quote, amountIn *big.Int) decimal.Decimal {
	ref := new(big.Int).Quo(amountIn, big.NewInt(referenceDivisor))
	if ref.Sign() == 0 || q.amountOut.Sign() == 0 {
		return decimal.Zero
	}

	refOut, err := eng.Requote(ctx, q.route, ref)
	if err != nil || refOut.Sign() == 0 {
		s.logger.Debug("reference quote unavailable", "err", err)
		return decimal.Zero
	}

	spot := decimal.NewFromBigInt(refOut, 0).Div(decimal.NewFromBigInt(ref, 0))
	rate := decimal.NewFromBigInt(q.amountOut, 0).Div(decimal.NewFromBigInt(amountIn, 0))
	impact := decimal.NewFromInt(1).Sub(rate.Div(spot)).Mul(decimal.NewFromInt(100))
	if impact.IsNegative() {
		return decimal.Zero
	}

	return impact.Round(2)
}

func (s *service) Execute(ctx context.Context, tokenIn, tokenOut core.Token, amountIn *big.Int, recipient common.Address, signer *bind.TransactOpts) (*core.SwapResult, error) {
	if signer == nil {
		return nil, core.NewError(core.ErrValidation, "signer is required")
	}

	if tokenIn.Same(tokenOut) {
		return nil, core.NewError(core.ErrValidation, "tokenIn and tokenOut are the same")
	}

	if recipient == (common.Address{}) {
		recipient = signer.From
	}

	q, err := s.Quote(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}

	eng := s.engine(ctx)
	result := &core.SwapResult{AmountOut: q.AmountOut}

	if !tokenIn.Native {
		hash, err := s.approve(ctx, tokenIn.Address, eng.Spender(), amountIn, signer)
		if err != nil {
			return nil, err
		}

		result.ApprovalHash = hash
	}

	opts := *signer
	opts.Context = ctx
	opts.Value = nil
	if tokenIn.Native {
		opts.Value = new(big.Int).Set(amountIn)
	}

	deadline := big.NewInt(s.now().Add(s.cfg.Deadline).Unix())
	tx, err := eng.Swap(&opts, q.Route, recipient, amountIn, q.MinimumAmountOut, deadline)
	if err != nil {
		s.logger.Error("engine.Swap", "engine", eng.Name(), "err", err)
		return nil, core.WrapError(core.ErrSwapExecution, err)
	}

	result.Hash = tx.Hash()
	s.logger.Info("swap submitted", "engine", eng.Name(), "hash", result.Hash, "amountIn", amountIn, "minOut", q.MinimumAmountOut)

	receipt, err := s.wait(ctx, tx)
	if err != nil {
		return nil, &core.Error{Kind: core.ErrSwapExecution, Message: fmt.Sprintf("wait for swap %s", result.Hash.Hex()), Err: err}
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, core.NewError(core.ErrSwapExecution, "swap %s reverted", result.Hash.Hex())
	}

	result.Success = true
	return result, nil
}

// approve makes sure spender may pull amount of token. The allowance is read
// again on every call so an approval left by an interrupted swap is reused.
func (s *service) approve(ctx context.Context, token, spender common.Address, amount *big.Int, signer *bind.TransactOpts) (*common.Hash, error) {
	c := s.erc20(token)

	allowance, err := c.Allowance(ctx, signer.From, spender)
	if err != nil {
		return nil, core.WrapError(core.ErrNetwork, err)
	}

	if allowance.Cmp(amount) >= 0 {
		return nil, nil
	}

	opts := *signer
	opts.Context = ctx
	opts.Value = nil

	tx, err := c.Approve(&opts, spender, amount)
	if err != nil {
		s.logger.Error("erc20.Approve", "token", token, "err", err)
		return nil, core.WrapError(core.ErrSwapExecution, err)
	}

	hash := tx.Hash()
	s.logger.Info("approval submitted", "token", token, "spender", spender, "hash", hash)

	receipt, err := s.wait(ctx, tx)
	if err != nil {
		return nil, &core.Error{Kind: core.ErrSwapExecution, Message: fmt.Sprintf("wait for approval %s", hash.Hex()), Err: err}
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, core.NewError(core.ErrSwapExecution, "approval %s reverted", hash.Hex())
	}

	return &hash, nil
}
