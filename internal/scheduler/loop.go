package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daylog/daylog/internal/control"
	"github.com/daylog/daylog/internal/daytime"
	"github.com/daylog/daylog/pkg/logger"
	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
)

// DefaultBackoff is how long the loop waits after a configuration error.
const DefaultBackoff = time.Minute

// Config wires a Loop to its collaborators.
type Config struct {
	Storage Storage
	Sender  Sender
	Control Controller

	// Optional.
	Clock    clockwork.Clock
	Logger   logger.Logger
	Recorder Recorder
	// Backoff after a configuration error; DefaultBackoff when zero.
	Backoff time.Duration
	// MaxConfigRetries bounds consecutive configuration errors; zero retries forever.
	MaxConfigRetries int
}

// Loop is the scheduler main loop. It is not safe for concurrent use.
type Loop struct {
	storage    Storage
	sender     Sender
	control    Controller
	clock      clockwork.Clock
	log        logger.Logger
	rec        Recorder
	backoff    time.Duration
	maxRetries int

	reference time.Time
}

// NewLoop validates cfg and returns a Loop ready to Run.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Storage == nil || cfg.Sender == nil || cfg.Control == nil {
		return nil, errors.New("scheduler: storage, sender and control are required")
	}
	l := &Loop{
		storage:    cfg.Storage,
		sender:     cfg.Sender,
		control:    cfg.Control,
		clock:      cfg.Clock,
		log:        cfg.Logger,
		rec:        cfg.Recorder,
		backoff:    cfg.Backoff,
		maxRetries: cfg.MaxConfigRetries,
	}
	if l.clock == nil {
		l.clock = clockwork.NewRealClock()
	}
	if l.log == nil {
		l.log = logger.NewNopLogger()
	}
	if l.rec == nil {
		l.rec = nopRecorder{}
	}
	if l.backoff <= 0 {
		l.backoff = DefaultBackoff
	}
	return l, nil
}

// Reference returns the loop's reference clock.
func (l *Loop) Reference() time.Time {
	return l.reference
}

// Run seeds the reference clock from the clock and loops until a terminate
// signal has been drained, ctx is cancelled, the configuration retry budget
// is spent or the control channel fails.
func (l *Loop) Run(ctx context.Context) error {
	l.reference = l.clock.Now().UTC().Truncate(time.Minute)
	l.log.Info("scheduler started, reference clock %s", l.reference.Format(time.RFC3339))

	failures := 0
	for {
		if ctx.Err() != nil {
			l.log.Info("scheduler stopped: %v", ctx.Err())
			return nil
		}

		users, err := l.storage.LoadUsers(ctx)
		if err == nil && len(users) == 0 {
			err = ErrNoUsers
		}
		if err != nil {
			failures++
			l.rec.ConfigError()
			if l.maxRetries > 0 && failures >= l.maxRetries {
				return fmt.Errorf("%w: giving up after %d attempts: %w", ErrConfig, failures, err)
			}
			l.log.Warning("loading users: %v; retrying in %s", err, l.backoff)
			stop, werr := l.wait(l.backoff)
			if werr != nil || stop {
				return werr
			}
			continue
		}
		failures = 0

		cohort, _ := NextCohort(users, l.reference)
		deadline := cohort.Target.Instant(l.reference)
		d := cohort.Target.DurationFrom(l.clock.Now().Sub(daytime.StartOfDay(l.reference)))
		if d > 0 {
			l.log.Info("next wake %s (%s) for %d user(s)", deadline.Format(time.RFC3339),
				humanize.RelTime(deadline, deadline.Add(-d), "ago", "from now"), len(cohort.Users))
		}

		woken, err := l.control.WaitUntil(d)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", cohort.Target, err)
		}
		if woken == control.Readable {
			stop, err := l.handleWake()
			if err != nil || stop {
				return err
			}
			// Reload or spurious wake-up: recompute from a fresh user list.
			continue
		}

		l.dispatch(ctx, cohort)
		l.reference = deadline.Add(time.Minute)
		l.rec.Tick(len(cohort.Users))
		l.rec.ReferenceLag(l.clock.Now().Sub(l.reference))
	}
}

// wait blocks for d, handling any signal that arrives meanwhile.
func (l *Loop) wait(d time.Duration) (stop bool, err error) {
	woken, err := l.control.WaitUntil(d)
	if err != nil {
		return true, fmt.Errorf("backoff wait: %w", err)
	}
	if woken == control.Readable {
		return l.handleWake()
	}
	return false, nil
}

func (l *Loop) handleWake() (stop bool, err error) {
	drained, err := l.control.Drain()
	if err != nil {
		return true, fmt.Errorf("draining control channel: %w", err)
	}
	l.log.Debug("drained %d control marker(s)", drained.Markers)
	if l.control.Terminating() {
		l.log.Info("terminate requested, scheduler stopping")
		return true, nil
	}
	if drained.Reload {
		l.log.Info("reload requested, re-reading users")
		l.rec.Reloaded()
		if err := l.control.Acknowledge(); err != nil {
			return true, err
		}
	}
	return false, nil
}

func (l *Loop) dispatch(ctx context.Context, cohort Cohort) {
	for _, u := range cohort.Users {
		if err := l.sender.Send(ctx, u); err != nil {
			l.log.Error("send to %s failed: %v", u.Username, err)
			l.rec.Dispatched(false)
			continue
		}
		l.log.Info("sent digest to %s", u.Username)
		l.rec.Dispatched(true)
	}
}
