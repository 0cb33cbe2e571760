package clock

import (
	bclock "github.com/benbjohnson/clock"
)

// Clock is the time source injected into components that schedule
// delayed actions. Production code uses New; tests use NewMock and
// advance the mock explicitly.
type Clock = bclock.Clock

// Mock is a manually-advanced Clock for deterministic tests.
type Mock = bclock.Mock

// Timer is a cancellable scheduled action created from a Clock.
type Timer = bclock.Timer

// New returns a Clock backed by the wall clock.
func New() Clock {
	return bclock.New()
}

// NewMock returns a Mock whose time only moves via Add or Set.
func NewMock() *Mock {
	return bclock.NewMock()
}
