package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current time. Aggregation and forecasting never read
// the wall clock directly.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystemClock() Clock {
	return SystemClock{}
}

// Yesterday returns UTC midnight of the last complete day relative to c.
func Yesterday(c Clock) time.Time {
	now := c.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -1)
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
