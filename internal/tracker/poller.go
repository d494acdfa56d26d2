package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ctfd-bot/internal/constants"
	"ctfd-bot/internal/domain"
	"ctfd-bot/internal/metrics"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type EventKind string

const (
	KindNewSolve     EventKind = "new_solve"
	KindNewChallenge EventKind = "new_challenge"
)

type Event struct {
	ID        string
	Kind      EventKind
	Solve     *domain.SolveEvent
	Challenge *domain.ChallengeInfo
}

type Reporter interface {
	// Ready is false until the destination can accept events.
	Ready() bool
	Report(ctx context.Context, ev Event) error
}

// State is everything the poller remembers between ticks.
type State struct {
	LastSeen Fingerprint
	Visible  IDSet
}

type Poller struct {
	interval   time.Duration
	solves     *SolveTracker
	visibility *VisibilityTracker
	resolver   ChallengeResolver
	reporter   Reporter
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	// every store query and report of a tick is bounded by these
	queryTimeout  time.Duration
	reportTimeout time.Duration

	mu    sync.Mutex
	state State
}

func NewPoller(
	interval time.Duration,
	solves *SolveTracker,
	visibility *VisibilityTracker,
	resolver ChallengeResolver,
	reporter Reporter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Poller {
	return &Poller{
		interval:   interval,
		solves:     solves,
		visibility: visibility,
		resolver:   resolver,
		reporter:   reporter,
		metrics:    m,
		logger:     logger.With().Str("component", "poller").Logger(),

		queryTimeout:  constants.QueryTimeout,
		reportTimeout: constants.ReportTimeout,
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{LastSeen: p.state.LastSeen, Visible: p.state.Visible.Clone()}
}

func (p *Poller) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = State{LastSeen: s.LastSeen, Visible: s.Visible.Clone()}
}

// Run ticks at a fixed rate until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("poller started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poller stopped")
			return
		case <-ticker.C:
			p.safeTick(ctx)
		}
	}
}

func (p *Poller) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("poll tick panicked")
		}
	}()
	p.Tick(ctx)
}

// Tick runs one poll. Solves take priority: when one is reported the
// visibility check waits for the next tick.
func (p *Poller) Tick(ctx context.Context) {
	if !p.reporter.Ready() {
		return
	}

	start := time.Now()
	p.metrics.PollTicks.Inc()
	defer func() {
		p.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	state := p.State()
	if p.pollSolves(ctx, state.LastSeen) {
		return
	}
	p.pollVisibility(ctx, state.Visible)
}

func (p *Poller) pollSolves(ctx context.Context, last Fingerprint) bool {
	queryCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	next, solve, err := p.solves.Poll(queryCtx, last)
	cancel()
	if err != nil {
		p.metrics.PollErrors.WithLabelValues("solves").Inc()
		p.logger.Error().Err(err).Msg("solve poll failed")
		return false
	}
	if solve == nil {
		p.setLastSeen(next)
		return false
	}

	ev := Event{ID: newEventID(), Kind: KindNewSolve, Solve: solve}
	if err := p.report(ctx, ev); err != nil {
		return true
	}
	p.setLastSeen(next)
	return true
}

func (p *Poller) pollVisibility(ctx context.Context, known IDSet) {
	queryCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	next, added, err := p.visibility.Poll(queryCtx, known)
	cancel()
	if err != nil {
		p.metrics.PollErrors.WithLabelValues("visibility").Inc()
		p.logger.Error().Err(err).Msg("visibility poll failed")
		return
	}

	// remember what was delivered so a failed report only retries the rest
	delivered := known.Clone()
	for _, id := range added {
		info, err := p.resolve(ctx, id)
		if err != nil {
			p.metrics.PollErrors.WithLabelValues("visibility").Inc()
			p.logger.Error().Err(err).Int("challenge_id", id).Msg("failed to resolve challenge")
			p.setVisible(delivered)
			return
		}
		ev := Event{ID: newEventID(), Kind: KindNewChallenge, Challenge: info}
		if err := p.report(ctx, ev); err != nil {
			p.setVisible(delivered)
			return
		}
		delivered[id] = struct{}{}
	}
	p.setVisible(next)
}

func (p *Poller) resolve(ctx context.Context, id int) (*domain.ChallengeInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()
	return p.resolver.ChallengeInfo(ctx, id)
}

func (p *Poller) report(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.reportTimeout)
	defer cancel()

	if err := p.reporter.Report(ctx, ev); err != nil {
		p.logger.Error().Err(err).Str("event_id", ev.ID).Str("kind", string(ev.Kind)).Msg("failed to report event")
		return fmt.Errorf("failed to report %s: %w", ev.Kind, err)
	}
	p.metrics.EventsReported.WithLabelValues(string(ev.Kind)).Inc()
	p.logger.Info().Str("event_id", ev.ID).Str("kind", string(ev.Kind)).Msg("event reported")
	return nil
}

func (p *Poller) setLastSeen(f Fingerprint) {
	p.mu.Lock()
	p.state.LastSeen = f
	p.mu.Unlock()
}

func (p *Poller) setVisible(s IDSet) {
	p.mu.Lock()
	p.state.Visible = s
	p.mu.Unlock()
}

func newEventID() string {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Sprintf("ev-%d", time.Now().UnixNano())
	}
	return id
}
