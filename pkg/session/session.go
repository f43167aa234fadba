// Package session owns everything that lives for one swap intent: the
// pollers, the gas preference and the orchestrator.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"intent-swap/pkg/gas"
	"intent-swap/pkg/poller"
	"intent-swap/pkg/swap"
	"intent-swap/pkg/types"
)

// PriceSource fetches indicative prices
type PriceSource interface {
	GetPrice(ctx context.Context, req types.QuoteRequest) (*types.Price, error)
}

// GasSource fetches gas tiers
type GasSource interface {
	GetGasTiers(ctx context.Context) (types.GasTiers, error)
}

// Tracker reports balances and activity
type Tracker interface {
	GetBalances(ctx context.Context, account common.Address) types.Balances
	GetActivity(ctx context.Context, account common.Address, optimistic *types.ActivityRecord) ([]types.ActivityRecord, error)
}

// Executor runs swaps one at a time
type Executor interface {
	Trigger(ctx context.Context, order swap.Order) (types.SwapExecution, error)
	State() types.ExecutionStatus
	Current() (types.SwapExecution, bool)
	Optimistic() *types.ActivityRecord
}

// Intervals are the polling periods
type Intervals struct {
	Price         time.Duration
	PriceDebounce time.Duration
	Gas           time.Duration
	Balances      time.Duration
	Activity      time.Duration
}

// DefaultIntervals match the upstream rate limits
var DefaultIntervals = Intervals{
	Price:         10 * time.Second,
	PriceDebounce: 300 * time.Millisecond,
	Gas:           60 * time.Second,
	Balances:      60 * time.Second,
	Activity:      10 * time.Second,
}

// Deps wires a Session. Recorder is optional.
type Deps struct {
	Wallet    common.Address
	Sell      types.TokenRef
	Buy       types.TokenRef
	Prices    PriceSource
	Gas       GasSource
	Tracker   Tracker
	Executor  Executor
	Intervals Intervals
	Recorder  poller.Recorder
	Logger    logrus.FieldLogger
}

type Session struct {
	deps    Deps
	intent  types.SwapIntent
	request types.QuoteRequest
	log     logrus.FieldLogger

	price    *poller.Task[*types.Price]
	gas      *poller.Task[types.GasTiers]
	balances *poller.Task[types.Balances]
	activity *poller.Task[[]types.ActivityRecord]

	mu      sync.Mutex
	gasPref types.GasTierName
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	changes chan struct{}
}

// New creates a session for intent. The quote request is derived up front so
// that a malformed amount fails before anything is polled.
func New(deps Deps, intent types.SwapIntent) (*Session, error) {
	req, err := swap.NewQuoteRequest(intent, deps.Sell, deps.Buy)
	if err != nil {
		return nil, err
	}

	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	iv := withDefaults(deps.Intervals)

	s := &Session{
		deps:    deps,
		intent:  intent,
		request: req,
		log:     deps.Logger.WithField("component", "session"),
		gasPref: types.DefaultGasTier,
		changes: make(chan struct{}, 1),
	}

	opts := func(extra ...poller.Option) []poller.Option {
		return append([]poller.Option{
			poller.WithLogger(deps.Logger),
			poller.WithRecorder(deps.Recorder),
		}, extra...)
	}

	s.price = poller.NewTask("price", iv.Price, func(ctx context.Context) (*types.Price, error) {
		return deps.Prices.GetPrice(ctx, s.Request())
	}, opts(poller.WithDebounce(iv.PriceDebounce))...)

	s.gas = poller.NewTask("gas", iv.Gas, deps.Gas.GetGasTiers, opts()...)

	s.balances = poller.NewTask("balances", iv.Balances, func(ctx context.Context) (types.Balances, error) {
		return deps.Tracker.GetBalances(ctx, deps.Wallet), nil
	}, opts()...)

	s.activity = poller.NewTask("activity", iv.Activity, func(ctx context.Context) ([]types.ActivityRecord, error) {
		return deps.Tracker.GetActivity(ctx, deps.Wallet, deps.Executor.Optimistic())
	}, opts()...)

	return s, nil
}

func withDefaults(iv Intervals) Intervals {
	if iv.Price <= 0 {
		iv.Price = DefaultIntervals.Price
	}
	if iv.PriceDebounce < 0 {
		iv.PriceDebounce = DefaultIntervals.PriceDebounce
	}
	if iv.Gas <= 0 {
		iv.Gas = DefaultIntervals.Gas
	}
	if iv.Balances <= 0 {
		iv.Balances = DefaultIntervals.Balances
	}
	if iv.Activity <= 0 {
		iv.Activity = DefaultIntervals.Activity
	}
	return iv
}

// Start launches the pollers
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.fanIn(ctx, s.price.Changes())
	s.fanIn(ctx, s.gas.Changes())
	s.fanIn(ctx, s.balances.Changes())
	s.fanIn(ctx, s.activity.Changes())

	s.price.Start(ctx)
	s.gas.Start(ctx)
	s.balances.Start(ctx)
	s.activity.Start(ctx)
}

func (s *Session) fanIn(ctx context.Context, ch <-chan struct{}) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.notify()
			}
		}
	}()
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Close stops every poller and waits for them to exit
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	s.price.Stop()
	s.gas.Stop()
	s.balances.Stop()
	s.activity.Stop()
	s.wg.Wait()
}

// Changes is signalled whenever any part of the view may have changed
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

// Request returns the quote request derived from the intent
func (s *Session) Request() types.QuoteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// Intent returns the intent the session currently quotes
func (s *Session) Intent() types.SwapIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

// SetIntent replaces the session's intent, for example after the user edited
// the amount. The price is refetched once the updates have settled for the
// price debounce. An intent that does not convert leaves the session as is.
func (s *Session) SetIntent(intent types.SwapIntent) error {
	req, err := swap.NewQuoteRequest(intent, s.deps.Sell, s.deps.Buy)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.intent = intent
	s.request = req
	s.mu.Unlock()

	s.price.Invalidate()
	s.notify()
	return nil
}

// SelectGas sets the gas tier preference used by Execute
func (s *Session) SelectGas(name string) error {
	tier, err := types.ParseGasTierName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.gasPref = tier
	s.mu.Unlock()

	s.notify()
	return nil
}

// Gas returns the preferred tier from the latest gas snapshot
func (s *Session) Gas() types.GasTier {
	s.mu.Lock()
	pref := s.gasPref
	s.mu.Unlock()

	tier := gas.Select(s.gas.Snapshot().Value, string(pref))
	if tier.Name == "" {
		// nothing fetched yet, a zero price lets the node choose
		tier.Name = pref
	}
	return tier
}

// View assembles the current state
func (s *Session) View() View {
	price := s.price.Snapshot()
	gasSnap := s.gas.Snapshot()
	selected := s.Gas()

	v := View{
		Title:      Title(s.Request(), s.deps.Sell, s.deps.Buy, price.Value),
		Working:    s.deps.Executor.State().InFlight(),
		Price:      price.Value,
		PriceStale: price.Stale,
		Sources:    Sources(price.Value),
		GasStale:   gasSnap.Stale,
		Balances:   s.balances.Snapshot().Value,
		Activity:   s.activity.Snapshot().Value,
	}
	tiers := gasSnap.Value
	if !gasSnap.Loaded {
		tiers = types.GasTiers{
			Fast:    types.GasTier{Name: types.GasFast},
			Average: types.GasTier{Name: types.GasAverage},
			Safe:    types.GasTier{Name: types.GasSafe},
		}
	}
	for _, tier := range tiers.All() {
		v.GasChoices = append(v.GasChoices, GasChoice{Tier: tier, Selected: tier.Name == selected.Name})
	}
	if exec, ok := s.deps.Executor.Current(); ok {
		v.Execution = &exec
	}
	return v
}

// Execute triggers the swap at the latest price and preferred gas tier. A
// trigger while a swap is in flight is ignored and returns the running
// execution without error.
func (s *Session) Execute(ctx context.Context) (types.SwapExecution, error) {
	price := s.price.Snapshot()
	if !price.Loaded {
		if price = s.price.Refresh(ctx); !price.Loaded {
			if price.Err != nil {
				return types.SwapExecution{}, price.Err
			}
			return types.SwapExecution{}, types.NewValidationError("price", "no price available yet")
		}
	}

	order := swap.Order{
		Request: s.Request(),
		Price:   price.Value,
		Gas:     s.Gas(),
	}

	s.notify()
	exec, err := s.deps.Executor.Trigger(ctx, order)
	if types.IsState(err) {
		s.log.WithError(err).Debug("swap already in flight, ignoring trigger")
		current, _ := s.deps.Executor.Current()
		return current, nil
	}
	s.notify()

	if err == nil {
		s.activity.Invalidate()
		s.balances.Invalidate()
	}
	return exec, err
}

// WaitPrice blocks until a price fetch has completed or ctx is done
func (s *Session) WaitPrice(ctx context.Context) poller.Snapshot[*types.Price] {
	return waitLoaded(ctx, s.price)
}

// WaitGas blocks until a gas fetch has completed or ctx is done
func (s *Session) WaitGas(ctx context.Context) poller.Snapshot[types.GasTiers] {
	return waitLoaded(ctx, s.gas)
}

// WaitPriceSince blocks until a price fetched after since is available, the
// fetch failed, or ctx is done
func (s *Session) WaitPriceSince(ctx context.Context, since time.Time) poller.Snapshot[*types.Price] {
	return waitFor(ctx, s.price, func(snap poller.Snapshot[*types.Price]) bool {
		return snap.UpdatedAt.After(since)
	})
}

func waitLoaded[T any](ctx context.Context, task *poller.Task[T]) poller.Snapshot[T] {
	return waitFor(ctx, task, func(snap poller.Snapshot[T]) bool {
		return snap.Loaded || snap.Stale
	})
}

func waitFor[T any](ctx context.Context, task *poller.Task[T], done func(poller.Snapshot[T]) bool) poller.Snapshot[T] {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		snap := task.Snapshot()
		if done(snap) {
			return snap
		}
		select {
		case <-ctx.Done():
			return snap
		case <-ticker.C:
		}
	}
}
