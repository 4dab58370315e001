package digest

import (
	"context"
	"time"

	"github.com/daylog/daylog/internal/scheduler"
	"github.com/daylog/daylog/pkg/logger"
	"github.com/jonboulle/clockwork"
)

// Dispatcher composes and delivers digests. It implements scheduler.Sender.
type Dispatcher struct {
	composer  *Composer
	transport Transport
	clock     clockwork.Clock
	log       logger.Logger
}

var _ scheduler.Sender = (*Dispatcher)(nil)

func NewDispatcher(composer *Composer, transport Transport, clock clockwork.Clock, log logger.Logger) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Dispatcher{composer: composer, transport: transport, clock: clock, log: log}
}

// Send delivers u's digest for the current date in u's timezone.
func (d *Dispatcher) Send(ctx context.Context, u scheduler.User) error {
	loc := u.Timezone
	if loc == nil {
		loc = time.UTC
	}
	return d.SendFor(ctx, u, d.clock.Now().In(loc))
}

// SendFor delivers u's digest for the calendar date of date.
func (d *Dispatcher) SendFor(ctx context.Context, u scheduler.User, date time.Time) error {
	m, err := d.composer.Compose(ctx, u, date)
	if err != nil {
		return err
	}
	d.log.Debug("delivering digest for %s to %s", date.Format(dateLayout), u.Email)
	return d.transport.Deliver(ctx, m)
}
