package agentcore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FetcherStage publishes Quotes until ctx is cancelled.
type FetcherStage interface {
	Run(ctx context.Context, quotes chan<- Quote)
}

// PlannerStage consumes Quotes and feedback, emits Plans, until ctx is
// cancelled.
type PlannerStage interface {
	Run(ctx context.Context, quotes <-chan Quote, plans chan<- Plan, feedback <-chan LearningFeedback)
}

// ExecutorStage consumes Plans and emits Results, until ctx is cancelled.
type ExecutorStage interface {
	Run(ctx context.Context, plans <-chan Plan, results chan<- ExecutionResult)
}

// ObserverStage consumes Results and emits LearningFeedback, until ctx is
// cancelled.
type ObserverStage interface {
	Run(ctx context.Context, results <-chan ExecutionResult, feedback chan<- LearningFeedback)
}

// ChannelSizes configures the buffer capacity of each inter-stage channel.
type ChannelSizes struct {
	Quote    int
	Plan     int
	Result   int
	Feedback int
}

// Agent is the supervisor: it owns the quote/plan/result/feedback channels
// and the four pipeline stages for one portfolio, and wires them without any
// stage reaching into another's state directly.
type Agent struct {
	PortfolioID string

	fetcher  FetcherStage
	planner  PlannerStage
	executor ExecutorStage
	observer ObserverStage

	rawQuoteCh chan Quote
	quoteCh    chan Quote
	planCh     chan Plan
	resultCh   chan ExecutionResult
	feedbackCh chan LearningFeedback

	paused atomic.Bool

	log zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAgent constructs a supervisor owning fresh channels of the given sizes
// for the four stages.
func NewAgent(portfolioID string, fetcher FetcherStage, planner PlannerStage, executor ExecutorStage, observer ObserverStage, sizes ChannelSizes, log zerolog.Logger) *Agent {
	return &Agent{
		PortfolioID: portfolioID,
		fetcher:     fetcher,
		planner:     planner,
		executor:    executor,
		observer:    observer,
		rawQuoteCh:  make(chan Quote, sizes.Quote),
		quoteCh:     make(chan Quote, sizes.Quote),
		planCh:      make(chan Plan, sizes.Plan),
		resultCh:    make(chan ExecutionResult, sizes.Result),
		feedbackCh:  make(chan LearningFeedback, sizes.Feedback),
		log:         log.With().Str("component", "agent").Str("portfolio_id", portfolioID).Logger(),
	}
}

// Start launches all four stages as goroutines sharing ctx.
func (a *Agent) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(5)
	go func() {
		defer a.wg.Done()
		a.fetcher.Run(runCtx, a.rawQuoteCh)
	}()
	go func() {
		defer a.wg.Done()
		a.forwardQuotes(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.planner.Run(runCtx, a.quoteCh, a.planCh, a.feedbackCh)
	}()
	go func() {
		defer a.wg.Done()
		a.executor.Run(runCtx, a.planCh, a.resultCh)
	}()
	go func() {
		defer a.wg.Done()
		a.observer.Run(runCtx, a.resultCh, a.feedbackCh)
	}()

	a.log.Info().Msg("agent started")
}

// forwardQuotes relays fetched quotes from the fetcher to the planner,
// dropping them while the agent is paused. The fetcher keeps polling and the
// observer keeps monitoring regardless of pause state — only new planning
// decisions stop.
func (a *Agent) forwardQuotes(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-a.rawQuoteCh:
			if !ok {
				return
			}
			if a.paused.Load() {
				continue
			}
			select {
			case a.quoteCh <- q:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Pause stops new quotes from reaching the planner, so no further plans are
// produced until Resume is called. In-flight plans already queued for the
// executor still run to completion.
func (a *Agent) Pause() {
	a.paused.Store(true)
	a.log.Info().Msg("agent paused")
}

// Resume allows quotes to reach the planner again.
func (a *Agent) Resume() {
	a.paused.Store(false)
	a.log.Info().Msg("agent resumed")
}

// IsPaused reports whether the agent is currently refusing to plan.
func (a *Agent) IsPaused() bool {
	return a.paused.Load()
}

// Stop cancels the shared context, then waits up to timeout for all stages
// to return; on timeout it logs a warning and returns while stages may still
// be draining.
func (a *Agent) Stop(timeout time.Duration) {
	if a.cancel == nil {
		return
	}
	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.log.Info().Msg("agent stopped cleanly")
	case <-time.After(timeout):
		a.log.Warn().Dur("timeout", timeout).Msg("agent stop timed out; stages may still be draining")
	}
}
