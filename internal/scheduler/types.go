package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/daylog/daylog/internal/control"
	"github.com/daylog/daylog/internal/daytime"
)

var (
	// ErrNoUsers is a configuration error: there is nobody to schedule.
	ErrNoUsers = errors.New("no users configured")
	// ErrConfig wraps the last configuration error once the retry budget is spent.
	ErrConfig = errors.New("configuration error")
)

// User is the scheduler's read-only view of a recipient.
type User struct {
	Username string
	Email    string
	Timezone *time.Location
	SendTime daytime.LocalTime
}

// Storage supplies the current user list.
type Storage interface {
	LoadUsers(ctx context.Context) ([]User, error)
}

// Sender dispatches one user's digest.
type Sender interface {
	Send(ctx context.Context, u User) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, u User) error

func (f SenderFunc) Send(ctx context.Context, u User) error { return f(ctx, u) }

// Controller is the part of the control channel the loop blocks on.
type Controller interface {
	WaitUntil(d time.Duration) (control.WaitResult, error)
	Drain() (control.DrainResult, error)
	Acknowledge() error
	Terminating() bool
}

// Recorder receives loop events for metrics. All methods must be cheap.
type Recorder interface {
	Tick(cohort int)
	Dispatched(ok bool)
	Reloaded()
	ConfigError()
	ReferenceLag(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Tick(int)                   {}
func (nopRecorder) Dispatched(bool)            {}
func (nopRecorder) Reloaded()                  {}
func (nopRecorder) ConfigError()               {}
func (nopRecorder) ReferenceLag(time.Duration) {}

// Cohort is the set of users sharing one wake target.
type Cohort struct {
	Target daytime.WakeTarget
	Users  []User
}
