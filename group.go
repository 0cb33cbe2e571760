package replenish

import (
	"sync"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/replenish/pkg/clock"
	derror "github.com/hanfei1991/replenish/pkg/errors"
	"github.com/hanfei1991/replenish/pkg/validate"
)

// Group aggregates several pools behind a single gate. Consumption is
// all-or-nothing: it succeeds only when every member has capacity, and
// the group's remaining value is that of its most constrained member.
//
// The group exclusively owns its members. Each member is constructed
// with the group's internal relay as its callback, so the caller's
// callback fires only when a member refill clears the last remaining
// bottleneck.
type Group struct {
	mu      sync.Mutex
	members []*Pool

	onReplenished func()

	clock clock.Clock
}

// NewGroup creates an empty Group. onReplenished is invoked when an
// exhausted member replenishes and no other member is still at zero.
func NewGroup(onReplenished func()) (*Group, error) {
	if onReplenished == nil {
		return nil, derror.ErrInvalidCallbackType.GenWithStackByArgs()
	}
	return &Group{
		onReplenished: onReplenished,
		clock:         clock.New(),
	}, nil
}

// Add appends a new member pool wired to the group's relay. A failed
// Add leaves the member list untouched.
func (g *Group) Add(capacity int, interval time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := newPool(capacity, interval, g.memberReplenished, g.clock)
	if err != nil {
		return err
	}
	g.members = append(g.members, p)
	return nil
}

// AddFromSpec is Add for raw config numbers, with the full argument
// rule set applied. See NewPoolFromSpec.
func (g *Group) AddFromSpec(spec PoolSpec, mode validate.Mode) error {
	if err := validate.PoolArgs(float64(spec.Size), float64(spec.IntervalMs), g.onReplenished, mode); err != nil {
		return err
	}
	return g.Add(int(spec.Size), time.Duration(spec.IntervalMs)*time.Millisecond)
}

// MustAdd is the chainable form of Add. It panics on invalid arguments,
// so it is meant for statically-known pool parameters:
//
//	g.MustAdd(2, 10*time.Millisecond).MustAdd(5, 10*time.Millisecond)
func (g *Group) MustAdd(capacity int, interval time.Duration) *Group {
	if err := g.Add(capacity, interval); err != nil {
		panic(err)
	}
	return g
}

// Remaining returns the minimum remaining value across all members. It
// fails with ErrNoResourcePoolsFound on an empty group.
func (g *Group) Remaining() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked()
}

// Exhausted reports whether any member has been drained to zero,
// inheriting the empty-group failure from Remaining.
func (g *Group) Exhausted() (bool, error) {
	r, err := g.Remaining()
	if err != nil {
		return false, err
	}
	return r <= 0, nil
}

// Consume takes one unit from every member, in insertion order. It is
// all-or-nothing: when any member is exhausted it returns false and no
// member's counter changes. An empty group fails like Remaining.
func (g *Group) Consume() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	min, err := g.remainingLocked()
	if err != nil {
		return false, err
	}
	if min <= 0 {
		return false, nil
	}
	// None is exhausted, so every member draw succeeds. A rejection
	// here means a member was mutated behind the group's back.
	for _, p := range g.members {
		if !p.Consume() {
			log.L().Warn("group member rejected a draw",
				zap.Int("capacity", p.Capacity()),
				zap.Int("remaining", p.Remaining()))
		}
	}
	return true, nil
}

// Destroy destroys every member pool.
func (g *Group) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.members {
		p.Destroy()
	}
}

func (g *Group) remainingLocked() (int, error) {
	if len(g.members) == 0 {
		return 0, derror.ErrNoResourcePoolsFound.GenWithStackByArgs()
	}
	min := g.members[0].Remaining()
	for _, p := range g.members[1:] {
		if r := p.Remaining(); r < min {
			min = r
		}
	}
	return min, nil
}

// memberReplenished is registered as every member's callback. A member
// invokes it with no pool lock held, so reading the group state here is
// safe.
func (g *Group) memberReplenished() {
	exhausted, err := g.Exhausted()
	if err != nil || exhausted {
		// Another member is still at zero; its own refill will
		// re-check.
		return
	}
	g.onReplenished()
}
