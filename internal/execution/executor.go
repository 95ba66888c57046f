package execution

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

const (
	ModePaper = "paper"
	ModeLive  = "live"

	defaultMaxConcurrent = 3

	// iocExpiration is how far out an IOC leg's expiration is set. The
	// venue has no native IOC flag; a limit order expiring moments
	// after submission behaves the same way.
	iocExpiration = 3 * time.Second

	// placementTimeout bounds one group's leg submissions.
	placementTimeout = 30 * time.Second

	// cancelTimeout bounds each best-effort leg cancel. Cancels run on
	// a fresh context because the placement context may already be
	// exhausted when leg risk is discovered.
	cancelTimeout = 10 * time.Second
)

// OrderClient is the venue order surface the executor needs.
type OrderClient interface {
	CreateOrder(ctx context.Context, req *types.CreateOrderRequest) (*types.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*types.Order, error)
	GetOrder(ctx context.Context, orderID string) (*types.Order, error)
}

// BookSource provides current books for pre-submission validation.
type BookSource interface {
	All() map[string]*orderbook.Book
}

// Validator re-checks an opportunity against current books immediately
// before submission. The detector satisfies it.
type Validator interface {
	Validate(opp *arbitrage.Opportunity, quantity int, books map[string]*orderbook.Book) error
}

// Result is the outcome of one execution attempt.
type Result struct {
	OpportunityID string      `json:"opportunity_id"`
	GroupID       string      `json:"order_group_id,omitempty"`
	Status        GroupStatus `json:"status"`
	Success       bool        `json:"success"`
	ProfitCents   int         `json:"profit_cents"`
	FilledLegs    int         `json:"filled_legs"`
	TotalLegs     int         `json:"total_legs"`
	Error         string      `json:"error,omitempty"`
	ExecutedAt    time.Time   `json:"executed_at"`
}

// Stats is a snapshot of lifetime execution counters.
type Stats struct {
	TotalExecutions  int `json:"total_executions"`
	Successful       int `json:"successful"`
	TotalProfitCents int `json:"total_profit_cents"`
}

// Config holds executor configuration.
type Config struct {
	Mode          string
	OrderClient   OrderClient // required for live mode
	Books         BookSource
	Validator     Validator
	Fills         *FillTracker // optional post-submission verification
	MaxConcurrent int
	ParallelLegs  bool // submit a group's legs concurrently
	Logger        *zap.Logger
}

// Executor submits order groups for validated opportunities. A
// semaphore bounds concurrent executions; each group's legs are
// submitted as IOC orders, in parallel by default to minimize the
// window between legs.
type Executor struct {
	mode          string
	orderClient   OrderClient
	books         BookSource
	validator     Validator
	fills         *FillTracker
	maxConcurrent int
	parallelLegs  bool
	logger        *zap.Logger

	sem chan struct{}

	mu          sync.Mutex
	groups      map[string]*Group
	history     []Result
	executions  int
	successes   int
	profitCents int
}

// New creates a new executor.
func New(cfg *Config) *Executor {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	return &Executor{
		mode:          cfg.Mode,
		orderClient:   cfg.OrderClient,
		books:         cfg.Books,
		validator:     cfg.Validator,
		fills:         cfg.Fills,
		maxConcurrent: maxConcurrent,
		parallelLegs:  cfg.ParallelLegs,
		logger:        cfg.Logger,
		sem:           make(chan struct{}, maxConcurrent),
		groups:        make(map[string]*Group),
	}
}

// Execute captures an opportunity at the given per-leg quantity.
// Non-positive quantity means the opportunity's max; larger requests
// are clamped to it.
func (e *Executor) Execute(ctx context.Context, opp *arbitrage.Opportunity, quantity int) (result *Result) {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return e.finish(e.failResult(opp, "", ctx.Err().Error()))
	}
	InFlight.Inc()
	defer func() {
		InFlight.Dec()
		<-e.sem
	}()

	start := time.Now()
	result = e.run(ctx, opp, quantity)
	ExecutionDuration.Observe(time.Since(start).Seconds())

	return result
}

// ExecuteBatch runs the most profitable opportunities first, at most
// max per batch (the concurrency bound when non-positive).
func (e *Executor) ExecuteBatch(ctx context.Context, opps []*arbitrage.Opportunity, max int) (results []*Result) {
	if max <= 0 {
		max = e.maxConcurrent
	}

	sorted := append([]*arbitrage.Opportunity(nil), opps...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].NetProfitCents > sorted[j].NetProfitCents
	})
	if len(sorted) > max {
		sorted = sorted[:max]
	}

	results = make([]*Result, 0, len(sorted))
	for _, opp := range sorted {
		results = append(results, e.Execute(ctx, opp, 0))
	}

	return results
}

func (e *Executor) run(ctx context.Context, opp *arbitrage.Opportunity, quantity int) *Result {
	e.logger.Info("execution-starting",
		zap.String("opportunity-id", opp.ID),
		zap.String("type", string(opp.Type)),
		zap.Int("net-profit-cents", opp.NetProfitCents))

	qty := quantity
	if qty <= 0 {
		qty = opp.MaxQuantity
	}
	if qty > opp.MaxQuantity {
		qty = opp.MaxQuantity
	}
	if qty <= 0 {
		return e.finish(e.failResult(opp, "", "No quantity available"))
	}

	if e.validator != nil && e.books != nil {
		if err := e.validator.Validate(opp, qty, e.books.All()); err != nil {
			e.logger.Warn("opportunity-no-longer-valid",
				zap.String("opportunity-id", opp.ID),
				zap.Error(err))
			ValidationFailuresTotal.Inc()
			return e.finish(e.failResult(opp, "", "Opportunity no longer valid"))
		}
	}

	switch e.mode {
	case ModePaper:
		return e.executePaper(opp, qty)
	case ModeLive:
		return e.executeLive(ctx, opp, qty)
	default:
		return e.finish(e.failResult(opp, "", fmt.Sprintf("unknown execution mode: %s", e.mode)))
	}
}

// executePaper simulates a fill at the committed prices without
// touching the venue.
func (e *Executor) executePaper(opp *arbitrage.Opportunity, quantity int) *Result {
	group := e.newGroup(opp, quantity)
	group.Status = GroupStatusSubmitting

	now := time.Now()
	for _, leg := range group.Legs {
		group.Orders[leg.Ticker] = &types.Order{
			OrderID:       "paper-" + group.ID[:8] + "-" + leg.Ticker,
			ClientOrderID: group.ID + "-" + leg.Ticker,
			Ticker:        leg.Ticker,
			Side:          leg.Side,
			Action:        leg.Action,
			Type:          types.OrderTypeLimit,
			Status:        types.OrderStatusExecuted,
			Price:         leg.Price,
			Count:         leg.Quantity,
			CreatedTime:   &now,
		}
	}

	group.Status = GroupStatusComplete
	group.CompletedAt = &now

	profit := opp.NetProfitCents * quantity

	result := &Result{
		OpportunityID: opp.ID,
		GroupID:       group.ID,
		Status:        GroupStatusComplete,
		Success:       true,
		ProfitCents:   profit,
		FilledLegs:    len(group.Legs),
		TotalLegs:     len(group.Legs),
		ExecutedAt:    now,
	}

	e.logger.Info("paper-trade-executed",
		zap.String("opportunity-id", opp.ID),
		zap.String("group-id", group.ID),
		zap.String("event", opp.EventTicker),
		zap.Int("legs", len(group.Legs)),
		zap.Int("quantity", quantity),
		zap.Int("profit-cents", profit))

	return e.finish(result)
}

// executeLive submits every leg as an IOC limit order and classifies
// the group by how many legs filled.
func (e *Executor) executeLive(ctx context.Context, opp *arbitrage.Opportunity, quantity int) *Result {
	if e.orderClient == nil {
		e.logger.Error("order-client-not-configured")
		return e.finish(e.failResult(opp, "", "order client not configured"))
	}

	group := e.newGroup(opp, quantity)
	group.Status = GroupStatusSubmitting

	placeCtx, cancel := context.WithTimeout(ctx, placementTimeout)
	defer cancel()

	orders, errs := e.submitLegs(placeCtx, group)

	var firstErr error
	for i, order := range orders {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		group.Orders[group.Legs[i].Ticker] = order
	}

	// A leg that came back RESTING can still fill before its IOC
	// expiration; refresh the group before classifying.
	if e.fills != nil && len(group.Orders) > 0 {
		if _, err := e.fills.VerifyGroup(placeCtx, group); err != nil {
			e.logger.Warn("fill-verification-aborted",
				zap.String("group-id", group.ID),
				zap.Error(err))
		}
	}

	filled := group.FilledLegs()
	total := len(group.Legs)

	result := &Result{
		OpportunityID: opp.ID,
		GroupID:       group.ID,
		FilledLegs:    filled,
		TotalLegs:     total,
		ExecutedAt:    time.Now(),
	}

	switch {
	case filled == total:
		now := time.Now()
		group.Status = GroupStatusComplete
		group.CompletedAt = &now

		result.Status = GroupStatusComplete
		result.Success = true
		result.ProfitCents = opp.NetProfitCents * quantity

		e.logger.Info("execution-successful",
			zap.String("opportunity-id", opp.ID),
			zap.String("group-id", group.ID),
			zap.Int("profit-cents", result.ProfitCents))

	case group.TotalFilledCount() > 0:
		// Leg risk realized: some contracts are in the market without
		// their hedge. Cancel whatever still rests and surface PARTIAL
		// so the engine can escalate.
		group.Status = GroupStatusPartial
		e.cancelResting(group)

		result.Status = GroupStatusPartial
		result.Error = fmt.Sprintf("Partial fill: %d/%d legs", filled, total)

		e.logger.Error("partial-execution-leg-risk",
			zap.String("opportunity-id", opp.ID),
			zap.String("group-id", group.ID),
			zap.Int("filled-legs", filled),
			zap.Int("total-legs", total),
			zap.Int("filled-contracts", group.TotalFilledCount()))

	default:
		group.Status = GroupStatusFailed
		if firstErr != nil {
			group.Err = firstErr.Error()
		} else {
			group.Err = "No legs filled"
		}
		e.cancelResting(group)

		result.Status = GroupStatusFailed
		result.Error = group.Err

		e.logger.Error("execution-failed",
			zap.String("opportunity-id", opp.ID),
			zap.String("group-id", group.ID),
			zap.String("error", group.Err))
	}

	return e.finish(result)
}

// submitLegs places a group's legs. Parallel submission shrinks the
// window between legs; the sequential path stops at the first failed
// leg so no further exposure is taken after a rejection.
func (e *Executor) submitLegs(ctx context.Context, group *Group) ([]*types.Order, []error) {
	orders := make([]*types.Order, len(group.Legs))
	errs := make([]error, len(group.Legs))

	if !e.parallelLegs {
		for i := range group.Legs {
			orders[i], errs[i] = e.submitLeg(ctx, group.ID, group.Legs[i])
			if errs[i] != nil {
				for j := i + 1; j < len(group.Legs); j++ {
					errs[j] = fmt.Errorf("skipped %s: earlier leg failed", group.Legs[j].Ticker)
				}
				break
			}
		}
		return orders, errs
	}

	var wg sync.WaitGroup
	for i := range group.Legs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			orders[i], errs[i] = e.submitLeg(ctx, group.ID, group.Legs[i])
		}(i)
	}
	wg.Wait()

	return orders, errs
}

// submitLeg places one IOC leg. The client order id is deterministic
// per group and ticker so a retried submission cannot double-fill.
func (e *Executor) submitLeg(ctx context.Context, groupID string, leg arbitrage.Leg) (*types.Order, error) {
	req := &types.CreateOrderRequest{
		Ticker:        leg.Ticker,
		ClientOrderID: groupID + "-" + leg.Ticker,
		Side:          leg.Side,
		Action:        leg.Action,
		Count:         leg.Quantity,
		Type:          types.OrderTypeLimit,
		ExpirationTs:  time.Now().Add(iocExpiration).Unix(),
	}
	if leg.Side == types.SideNo {
		req.NoPrice = leg.Price
	} else {
		req.YesPrice = leg.Price
	}

	order, err := e.orderClient.CreateOrder(ctx, req)
	if err != nil {
		e.logger.Error("leg-submit-failed",
			zap.String("ticker", leg.Ticker),
			zap.Error(err))
		return nil, fmt.Errorf("submit %s: %w", leg.Ticker, err)
	}

	e.logger.Info("leg-submitted",
		zap.String("order-id", order.OrderID),
		zap.String("ticker", leg.Ticker),
		zap.String("side", string(leg.Side)),
		zap.String("action", string(leg.Action)),
		zap.Int("price", leg.Price),
		zap.Int("quantity", leg.Quantity),
		zap.String("status", string(order.Status)))

	return order, nil
}

// cancelResting fires a best-effort cancel for every leg still resting.
func (e *Executor) cancelResting(group *Group) {
	for ticker, order := range group.Orders {
		if order.Status != types.OrderStatusResting {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
		canceled, err := e.orderClient.CancelOrder(ctx, order.OrderID)
		cancel()

		if err != nil {
			e.logger.Error("leg-cancel-failed",
				zap.String("group-id", group.ID),
				zap.String("ticker", ticker),
				zap.String("order-id", order.OrderID),
				zap.Error(err))
			continue
		}

		group.Orders[ticker] = canceled
		LegCancelsTotal.Inc()

		e.logger.Info("leg-canceled",
			zap.String("group-id", group.ID),
			zap.String("ticker", ticker),
			zap.String("order-id", order.OrderID))
	}
}

// newGroup builds and registers a group for tracking.
func (e *Executor) newGroup(opp *arbitrage.Opportunity, quantity int) *Group {
	group := newGroup(opp, quantity)

	e.mu.Lock()
	e.groups[group.ID] = group
	e.mu.Unlock()

	e.logger.Info("order-group-created",
		zap.String("group-id", group.ID),
		zap.String("opportunity-id", opp.ID),
		zap.Int("legs", len(group.Legs)),
		zap.Int("quantity", quantity))

	return group
}

func (e *Executor) failResult(opp *arbitrage.Opportunity, groupID, errMsg string) *Result {
	return &Result{
		OpportunityID: opp.ID,
		GroupID:       groupID,
		Status:        GroupStatusFailed,
		TotalLegs:     len(opp.Legs),
		Error:         errMsg,
		ExecutedAt:    time.Now(),
	}
}

// finish records a result in the history and updates metrics.
func (e *Executor) finish(result *Result) *Result {
	e.mu.Lock()
	e.history = append(e.history, *result)
	e.executions++
	if result.Success {
		e.successes++
	}
	e.profitCents += result.ProfitCents
	cumulative := e.profitCents
	e.mu.Unlock()

	TradesTotal.WithLabelValues(e.mode, string(result.Status)).Inc()
	if result.ProfitCents > 0 {
		ProfitRealized.WithLabelValues(e.mode).Add(float64(result.ProfitCents))
	}
	if result.Status == GroupStatusFailed {
		ExecutionErrorsTotal.Inc()
	}

	e.logger.Debug("execution-recorded",
		zap.String("opportunity-id", result.OpportunityID),
		zap.String("status", string(result.Status)),
		zap.Int("profit-cents", result.ProfitCents),
		zap.Int("cumulative-profit-cents", cumulative))

	return result
}

// Group returns a tracked order group by id.
func (e *Executor) Group(id string) (group *Group, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	group, ok = e.groups[id]
	return group, ok
}

// PendingGroups returns groups that have not reached a terminal state,
// PARTIAL groups with open leg risk included.
func (e *Executor) PendingGroups() (pending []*Group) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, group := range e.groups {
		if !group.Status.IsTerminal() {
			pending = append(pending, group)
		}
	}
	return pending
}

// History returns a copy of all recorded results.
func (e *Executor) History() (history []Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]Result(nil), e.history...)
}

// Stats returns lifetime execution counters. ClearHistory does not
// reset them.
func (e *Executor) Stats() (stats Stats) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		TotalExecutions:  e.executions,
		Successful:       e.successes,
		TotalProfitCents: e.profitCents,
	}
}

// ClearHistory drops recorded results, keeping lifetime counters.
func (e *Executor) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = nil
}
