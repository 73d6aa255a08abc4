package swap

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sabicash/sabicash/core"
)

type State int

const (
	StateIdle State = iota
	StateQuotePending
	StateQuoteReady
	StateSwapping
	StateSwapSucceeded
	StateSwapFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQuotePending:
		return "quote_pending"
	case StateQuoteReady:
		return "quote_ready"
	case StateSwapping:
		return "swapping"
	case StateSwapSucceeded:
		return "swap_succeeded"
	case StateSwapFailed:
		return "swap_failed"
	}

	return "unknown"
}

const DefaultDebounce = 500 * time.Millisecond

var (
	ErrSwapInProgress = errors.New("swap in progress")
	ErrNoQuote        = errors.New("no quote ready")
	ErrFlowClosed     = errors.New("flow closed")
)

type Input struct {
	TokenIn  core.Token
	TokenOut core.Token
	AmountIn *big.Int
}

type Snapshot struct {
	State  State
	Input  Input
	Quote  *core.SwapQuote
	Result *core.SwapResult
	Err    error
}

// Flow drives one swap form: it debounces input changes into quotes and
// then executes the ready quote.
type Flow struct {
	swaps    core.SwapService
	debounce time.Duration
	logger   *slog.Logger

	// OnChange, when set, receives every state transition in order. It
	// may read Snapshot but must not change the flow.
	OnChange func(Snapshot)

	pub       sync.Mutex
	delivered uint64

	mux    sync.Mutex
	snap   Snapshot
	seq    uint64
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
}

func NewFlow(swaps core.SwapService, debounce time.Duration, logger *slog.Logger) *Flow {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Flow{
		swaps:    swaps,
		debounce: debounce,
		logger:   logger.With("service", "swap.flow"),
	}
}

func (f *Flow) Snapshot() Snapshot {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.snap
}

// stopLocked drops the pending timer and cancels the in-flight quote.
func (f *Flow) stopLocked() {
	f.gen++

	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// unlockAndPublish releases mux and delivers the snapshot it committed.
// A snapshot overtaken by a newer one is dropped, so subscribers never see
// states go backwards.
func (f *Flow) unlockAndPublish() {
	f.seq++
	seq, snap := f.seq, f.snap
	f.mux.Unlock()

	f.pub.Lock()
	defer f.pub.Unlock()

	if seq <= f.delivered {
		return
	}

	f.delivered = seq
	if fn := f.OnChange; fn != nil {
		fn(snap)
	}
}

// SetInput replaces the form input. The quote is requested once the input
// stayed unchanged for the debounce window.
func (f *Flow) SetInput(in Input) error {
	f.mux.Lock()
	if f.closed {
		f.mux.Unlock()
		return ErrFlowClosed
	}

	if f.snap.State == StateSwapping {
		f.mux.Unlock()
		return ErrSwapInProgress
	}

	f.stopLocked()
	gen := f.gen

	if in.AmountIn == nil || in.AmountIn.Sign() <= 0 {
		f.snap = Snapshot{State: StateIdle, Input: in}
	} else {
		f.snap = Snapshot{State: StateQuotePending, Input: in}
		f.timer = time.AfterFunc(f.debounce, func() {
			f.fetch(gen, in)
		})
	}

	f.unlockAndPublish()
	return nil
}

func (f *Flow) fetch(gen uint64, in Input) {
	f.mux.Lock()
	if f.closed || gen != f.gen {
		f.mux.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.timer = nil
	f.mux.Unlock()

	q, err := f.swaps.Quote(ctx, in.TokenIn, in.TokenOut, in.AmountIn)
	cancel()

	f.mux.Lock()
	if f.closed || gen != f.gen {
		f.mux.Unlock()
		return
	}

	f.cancel = nil
	if err != nil {
		f.logger.Warn("swaps.Quote", "err", err)
		f.snap = Snapshot{State: StateIdle, Input: in, Err: err}
	} else {
		f.snap = Snapshot{State: StateQuoteReady, Input: in, Quote: q}
	}

	f.unlockAndPublish()
}

// Swap executes the ready quote. Once submitted it runs to completion even
// if ctx is cancelled.
func (f *Flow) Swap(ctx context.Context, recipient common.Address, signer *bind.TransactOpts) (*core.SwapResult, error) {
	f.mux.Lock()
	if f.closed {
		f.mux.Unlock()
		return nil, ErrFlowClosed
	}

	if f.snap.State != StateQuoteReady {
		f.mux.Unlock()
		return nil, ErrNoQuote
	}

	f.stopLocked()
	f.snap.State = StateSwapping
	in, q := f.snap.Input, f.snap.Quote
	f.unlockAndPublish()

	result, err := f.swaps.Execute(context.WithoutCancel(ctx), in.TokenIn, in.TokenOut, in.AmountIn, recipient, signer)

	f.mux.Lock()
	if err != nil {
		f.logger.Error("swaps.Execute", "err", err)
		f.snap = Snapshot{State: StateSwapFailed, Input: in, Quote: q, Err: err}
	} else {
		f.snap = Snapshot{State: StateSwapSucceeded, Input: in, Quote: q, Result: result}
	}

	f.unlockAndPublish()
	return result, err
}

// Reset returns to Idle and clears the input.
func (f *Flow) Reset() error {
	f.mux.Lock()
	if f.snap.State == StateSwapping {
		f.mux.Unlock()
		return ErrSwapInProgress
	}

	f.stopLocked()
	f.snap = Snapshot{State: StateIdle}
	f.unlockAndPublish()
	return nil
}

// Close releases the debounce timer and any in-flight quote.
func (f *Flow) Close() {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.stopLocked()
	f.closed = true
}
