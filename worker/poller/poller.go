package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/sabicash/sabicash/core"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Interval  time.Duration `valid:"-"`
	TokenMint string        `valid:"-"`
}

func New(reader core.BalanceReader, cfg Config, logger *slog.Logger) *Poller {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}

	return &Poller{
		reader: reader,
		cfg:    cfg,
		logger: logger.With("worker", "poller"),
	}
}

// Poller refreshes the balances of one connected wallet. At most one
// polling loop runs at a time.
type Poller struct {
	reader core.BalanceReader
	cfg    Config
	logger *slog.Logger

	// OnUpdate, when set, receives every snapshot.
	OnUpdate func(core.WalletBalances)

	// serializes Start and Disconnect
	startMux sync.Mutex

	mux     sync.Mutex
	active  *Handle
	latest  core.WalletBalances
	running int
}

// Handle owns a running polling loop. Stop must be called to release it.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the loop and waits for it to exit. It is safe to call more
// than once.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed when the loop exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start begins polling wallet, stopping any loop started before.
func (p *Poller) Start(ctx context.Context, wallet string) *Handle {
	p.startMux.Lock()
	defer p.startMux.Unlock()

	p.mux.Lock()
	prev := p.active
	p.mux.Unlock()

	if prev != nil {
		prev.Stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	p.mux.Lock()
	p.active = h
	p.running++
	if p.latest.Wallet != wallet {
		p.latest = core.WalletBalances{Wallet: wallet, NativeBalance: decimal.Zero, TokenBalance: decimal.Zero}
	}
	p.mux.Unlock()

	go p.loop(ctx, h, wallet)
	return h
}

// Disconnect stops polling. It releases the wallet on logout.
func (p *Poller) Disconnect() {
	p.startMux.Lock()
	defer p.startMux.Unlock()

	p.mux.Lock()
	h := p.active
	p.mux.Unlock()

	if h != nil {
		h.Stop()
	}
}

// Active reports how many polling loops are running.
func (p *Poller) Active() int {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.running
}

func (p *Poller) Latest() core.WalletBalances {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.latest
}

func (p *Poller) loop(ctx context.Context, h *Handle, wallet string) {
	defer func() {
		p.mux.Lock()
		p.running--
		if p.active == h {
			p.active = nil
		}
		p.mux.Unlock()
		close(h.done)
	}()

	p.logger.Info("poller start", "wallet", wallet, "interval", p.cfg.Interval)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.run(ctx, wallet)

		select {
		case <-ctx.Done():
			p.logger.Info("poller stop", "wallet", wallet)
			return
		case <-ticker.C:
		}
	}
}

// run reads both balances once. Failed reads keep the last known value.
func (p *Poller) run(ctx context.Context, wallet string) {
	prev := p.Latest()
	next := prev
	next.Stale = false

	var g errgroup.Group
	var mux sync.Mutex

	g.Go(func() error {
		v, err := p.reader.NativeBalance(ctx, wallet)
		mux.Lock()
		defer mux.Unlock()

		if err != nil {
			p.logger.Warn("reader.NativeBalance", "wallet", wallet, "err", err)
			next.Stale = true
			return nil
		}

		next.NativeBalance = v
		return nil
	})

	if mint := p.cfg.TokenMint; mint != "" {
		g.Go(func() error {
			if !p.reader.ValidAddress(mint) {
				p.logger.Warn("invalid token mint, skip token balance", "mint", mint)
				return nil
			}

			v, err := p.reader.TokenBalance(ctx, wallet, mint)
			mux.Lock()
			defer mux.Unlock()

			if err != nil {
				p.logger.Warn("reader.TokenBalance", "wallet", wallet, "mint", mint, "err", err)
				next.Stale = true
				return nil
			}

			next.TokenBalance = v
			return nil
		})
	}

	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}

	next.UpdatedAt = time.Now()

	p.mux.Lock()
	if p.latest.Wallet == wallet {
		p.latest = next
	}
	onUpdate := p.OnUpdate
	p.mux.Unlock()

	if onUpdate != nil {
		onUpdate(next)
	}
}
