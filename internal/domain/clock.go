package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps history records. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the time source for history timestamps; nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

func now() time.Time { return clock.Now().UTC() }
