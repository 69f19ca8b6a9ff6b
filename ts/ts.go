package ts

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock wraps a clockwork.Clock with helpers for human-facing timestamps.
// Code that schedules timers should take the clockwork.Clock from RealClock.
type Clock struct {
	realClock clockwork.Clock
}

func NewRealClock() *Clock {
	return New(clockwork.NewRealClock())
}

func New(c clockwork.Clock) *Clock {
	return &Clock{realClock: c}
}

// Now provides a timestamp truncated to the second, in local time.
func (c *Clock) Now() time.Time {
	return c.realClock.Now().Local().Truncate(time.Second)
}

func (c *Clock) RealClock() clockwork.Clock {
	return c.realClock
}

// Ago renders the age of t the way a status line would: "just now", "42s ago",
// "3m ago", "5h ago", or a date for anything older than a day.
func (c *Clock) Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := c.realClock.Since(t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}
	return t.Local().Format("2006-01-02")
}
