package swap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sabicash/sabicash/core"
	"github.com/zyedidia/generic/mapset"
)

// engine quotes and builds swaps against one liquidity source.
type engine interface {
	Name() string
	// Spender is the contract that pulls the input token.
	Spender() common.Address
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*quote, error)
	// Requote prices an already chosen route for another amount.
	Requote(ctx context.Context, route []core.SwapHop, amountIn *big.Int) (*big.Int, error)
	Swap(opts *bind.TransactOpts, route []core.SwapHop, recipient common.Address, amountIn, minOut, deadline *big.Int) (*types.Transaction, error)
}

type quote struct {
	route     []core.SwapHop
	amountOut *big.Int
	gas       uint64
}

type contracts struct {
	factory *bind.BoundContract
	quoter  *bind.BoundContract
	router  *bind.BoundContract
	spender common.Address
}

func bindContracts(backend bind.ContractBackend, factory, quoter, router common.Address) contracts {
	return contracts{
		factory: bind.NewBoundContract(factory, factoryParsed, backend, backend, backend),
		quoter:  bind.NewBoundContract(quoter, quoterParsed, backend, backend, backend),
		router:  bind.NewBoundContract(router, routerParsed, backend, backend, backend),
		spender: router,
	}
}

func (c contracts) getPool(ctx context.Context, a, b common.Address, fee uint32) (common.Address, error) {
	var out []any
	if err := c.factory.Call(&bind.CallOpts{Context: ctx}, &out, "getPool", a, b, new(big.Int).SetUint64(uint64(fee))); err != nil {
		return common.Address{}, err
	}

	return out[0].(common.Address), nil
}

func (c contracts) quoteExactInput(ctx context.Context, route []core.SwapHop, amountIn *big.Int) (*big.Int, uint64, error) {
	path, err := encodePath(route)
	if err != nil {
		return nil, 0, err
	}

	var out []any
	if err := c.quoter.Call(&bind.CallOpts{Context: ctx}, &out, "quoteExactInput", path, amountIn); err != nil {
		return nil, 0, err
	}

	return out[0].(*big.Int), out[3].(*big.Int).Uint64(), nil
}

func (c contracts) quoteExactInputSingle(ctx context.Context, hop core.SwapHop, amountIn *big.Int) (*big.Int, uint64, error) {
	params := quoteSingleParams{
		TokenIn:           hop.TokenIn,
		TokenOut:          hop.TokenOut,
		AmountIn:          amountIn,
		Fee:               new(big.Int).SetUint64(uint64(hop.Fee)),
		SqrtPriceLimitX96: new(big.Int),
	}

	var out []any
	if err := c.quoter.Call(&bind.CallOpts{Context: ctx}, &out, "quoteExactInputSingle", params); err != nil {
		return nil, 0, err
	}

	return out[0].(*big.Int), out[3].(*big.Int).Uint64(), nil
}

type pairKey [2]common.Address

func keyOf(a, b common.Address) pairKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}

	return pairKey{a, b}
}

// router searches direct and one-intermediate routes over every fee tier.
type router struct {
	contracts
	tiers  []uint32
	bases  []common.Address
	logger *slog.Logger

	mux   sync.Mutex
	pools map[pairKey]map[uint32]common.Address
}

// discoverRouter finds the pools between all pairs of tokens and fails when
// the factory is unreachable or knows none of them.
func discoverRouter(ctx context.Context, c contracts, tiers []uint32, bases, tokens []common.Address, logger *slog.Logger) (*router, error) {
	r := &router{
		contracts: c,
		tiers:     tiers,
		bases:     bases,
		logger:    logger,
		pools:     map[pairKey]map[uint32]common.Address{},
	}

	seen := mapset.New[common.Address]()
	var all []common.Address
	for _, t := range append(append([]common.Address{}, tokens...), bases...) {
		if !seen.Has(t) {
			seen.Put(t)
			all = append(all, t)
		}
	}

	found := 0
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			pools, err := r.poolsFor(ctx, all[i], all[j])
			if err != nil {
				return nil, fmt.Errorf("discover pools: %w", err)
			}

			found += len(pools)
		}
	}

	if found == 0 {
		return nil, errors.New("no pools discovered")
	}

	logger.Info("router ready", "tokens", len(all), "pools", found)
	return r, nil
}

func (r *router) Name() string { return "router" }

func (r *router) Spender() common.Address { return r.spender }

// poolsFor returns the pools by fee tier, caching empty results too.
func (r *router) poolsFor(ctx context.Context, a, b common.Address) (map[uint32]common.Address, error) {
	key := keyOf(a, b)

	r.mux.Lock()
	pools, ok := r.pools[key]
	r.mux.Unlock()
	if ok {
		return pools, nil
	}

	pools = map[uint32]common.Address{}
	for _, fee := range r.tiers {
		pool, err := r.getPool(ctx, key[0], key[1], fee)
		if err != nil {
			return nil, err
		}

		if pool != (common.Address{}) {
			pools[fee] = pool
		}
	}

	r.mux.Lock()
	r.pools[key] = pools
	r.mux.Unlock()

	return pools, nil
}

func (r *router) candidates(ctx context.Context, tokenIn, tokenOut common.Address) ([][]core.SwapHop, error) {
	hops := func(a, b common.Address) ([]core.SwapHop, error) {
		pools, err := r.poolsFor(ctx, a, b)
		if err != nil {
			return nil, err
		}

		var out []core.SwapHop
		for _, fee := range r.tiers {
			if pool, ok := pools[fee]; ok {
				out = append(out, core.SwapHop{TokenIn: a, TokenOut: b, Fee: fee, Pool: pool})
			}
		}

		return out, nil
	}

	direct, err := hops(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	var routes [][]core.SwapHop
	for _, hop := range direct {
		routes = append(routes, []core.SwapHop{hop})
	}

	for _, base := range r.bases {
		if base == tokenIn || base == tokenOut {
			continue
		}

		first, err := hops(tokenIn, base)
		if err != nil {
			return nil, err
		}

		if len(first) == 0 {
			continue
		}

		second, err := hops(base, tokenOut)
		if err != nil {
			return nil, err
		}

		for _, a := range first {
			for _, b := range second {
				routes = append(routes, []core.SwapHop{a, b})
			}
		}
	}

	return routes, nil
}

func (r *router) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*quote, error) {
	routes, err := r.candidates(ctx, tokenIn, tokenOut)
	if err != nil {
		return nil, core.WrapError(core.ErrNetwork, err)
	}

	if len(routes) == 0 {
		return nil, core.NewError(core.ErrRouteNotFound, "no pools between %s and %s", tokenIn.Hex(), tokenOut.Hex())
	}

	var best *quote
	var lastErr error
	for _, route := range routes {
		out, gas, err := r.quoteExactInput(ctx, route, amountIn)
		if err != nil {
			r.logger.Debug("quoteExactInput", "hops", len(route), "err", err)
			lastErr = err
			continue
		}

		if best == nil || out.Cmp(best.amountOut) > 0 {
			best = &quote{route: route, amountOut: out, gas: gas}
		}
	}

	if best == nil {
		return nil, core.WrapError(core.ErrRouteNotFound, lastErr)
	}

	return best, nil
}

func (r *router) Requote(ctx context.Context, route []core.SwapHop, amountIn *big.Int) (*big.Int, error) {
	out, _, err := r.quoteExactInput(ctx, route, amountIn)
	return out, err
}

func (r *router) Swap(opts *bind.TransactOpts, route []core.SwapHop, recipient common.Address, amountIn, minOut, deadline *big.Int) (*types.Transaction, error) {
	path, err := encodePath(route)
	if err != nil {
		return nil, err
	}

	return r.router.Transact(opts, "exactInput", exactInputParams{
		Path:             path,
		Recipient:        recipient,
		Deadline:         deadline,
		AmountIn:         amountIn,
		AmountOutMinimum: minOut,
	})
}

// pool swaps directly on the single pool of the configured fee tier.
type pool struct {
	contracts
	fee       uint32
	noFactory bool
}

func (p *pool) Name() string { return "pool" }

func (p *pool) Spender() common.Address { return p.spender }

func (p *pool) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*quote, error) {
	hop := core.SwapHop{TokenIn: tokenIn, TokenOut: tokenOut, Fee: p.fee}

	if !p.noFactory {
		addr, err := p.getPool(ctx, tokenIn, tokenOut, p.fee)
		if err != nil {
			return nil, core.WrapError(core.ErrNetwork, err)
		}

		if addr == (common.Address{}) {
			return nil, core.NewError(core.ErrUnsupportedPair, "no %d pool between %s and %s", p.fee, tokenIn.Hex(), tokenOut.Hex())
		}

		hop.Pool = addr
	}

	out, gas, err := p.quoteExactInputSingle(ctx, hop, amountIn)
	if err != nil {
		return nil, core.WrapError(core.ErrRouteNotFound, err)
	}

	return &quote{route: []core.SwapHop{hop}, amountOut: out, gas: gas}, nil
}

func (p *pool) Requote(ctx context.Context, route []core.SwapHop, amountIn *big.Int) (*big.Int, error) {
	if len(route) != 1 {
		return nil, errors.New("pool routes have one hop")
	}

	out, _, err := p.quoteExactInputSingle(ctx, route[0], amountIn)
	return out, err
}

func (p *pool) Swap(opts *bind.TransactOpts, route []core.SwapHop, recipient common.Address, amountIn, minOut, deadline *big.Int) (*types.Transaction, error) {
	if len(route) != 1 {
		return nil, errors.New("pool routes have one hop")
	}

	hop := route[0]
	return p.router.Transact(opts, "exactInputSingle", exactInputSingleParams{
		TokenIn:           hop.TokenIn,
		TokenOut:          hop.TokenOut,
		Fee:               new(big.Int).SetUint64(uint64(hop.Fee)),
		Recipient:         recipient,
		Deadline:          deadline,
		AmountIn:          amountIn,
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: new(big.Int),
	})
}
