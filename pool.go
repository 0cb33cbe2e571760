package replenish

import (
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/replenish/pkg/clock"
	derror "github.com/hanfei1991/replenish/pkg/errors"
	"github.com/hanfei1991/replenish/pkg/validate"
)

// Pool is a self-replenishing counter. It starts at full capacity, is
// drained one unit per Consume, and resets to full capacity one
// interval after the first Consume since it was last full. The
// replenished callback fires only when the reset found the pool
// exhausted.
type Pool struct {
	mu        sync.Mutex
	capacity  int
	interval  time.Duration
	remaining int

	onReplenished func()

	clock clock.Clock
	// timer is non-nil iff a replenishment cycle is armed.
	timer     *clock.Timer
	destroyed bool
}

// NewPool creates a Pool with the given capacity and cycle interval.
// onReplenished is invoked after a cycle refills a pool that had been
// drained to zero.
func NewPool(capacity int, interval time.Duration, onReplenished func()) (*Pool, error) {
	return newPool(capacity, interval, onReplenished, clock.New())
}

// Number is a raw numeric argument as written in a config file. TOML
// keeps integer and float values apart, so decoding accepts both;
// integer-ness is a validation rule, not a decoding one.
type Number float64

// UnmarshalTOML implements toml.Unmarshaler.
func (n *Number) UnmarshalTOML(v interface{}) error {
	switch x := v.(type) {
	case int64:
		*n = Number(x)
	case float64:
		*n = Number(x)
	default:
		return errors.Errorf("numeric value expected, got %T", v)
	}
	return nil
}

// PoolSpec is the raw construction input for a Pool, in the shape a
// decoded config file produces.
type PoolSpec struct {
	Size       Number `toml:"size" json:"size"`
	IntervalMs Number `toml:"interval-ms" json:"interval-ms"`
}

// NewPoolFromSpec builds a Pool from raw numbers, applying the full
// rule set including integer-ness of size and interval. mode selects
// whether non-integer arguments surface as the type error kinds or are
// collapsed into the value kinds.
func NewPoolFromSpec(spec PoolSpec, mode validate.Mode, onReplenished func()) (*Pool, error) {
	if err := validate.PoolArgs(float64(spec.Size), float64(spec.IntervalMs), onReplenished, mode); err != nil {
		return nil, err
	}
	return NewPool(int(spec.Size), time.Duration(spec.IntervalMs)*time.Millisecond, onReplenished)
}

func newPool(capacity int, interval time.Duration, onReplenished func(), clk clock.Clock) (*Pool, error) {
	if capacity <= 0 {
		return nil, derror.ErrInvalidPoolSizeValue.GenWithStackByArgs(capacity)
	}
	if interval <= 0 {
		return nil, derror.ErrInvalidIntervalValue.GenWithStackByArgs(interval)
	}
	if onReplenished == nil {
		return nil, derror.ErrInvalidCallbackType.GenWithStackByArgs()
	}
	return &Pool{
		capacity:      capacity,
		interval:      interval,
		remaining:     capacity,
		onReplenished: onReplenished,
		clock:         clk,
	}, nil
}

// Capacity returns the fixed refill amount.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Remaining returns the current counter value.
func (p *Pool) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remaining
}

// Exhausted reports whether the pool has been drained to zero.
func (p *Pool) Exhausted() bool {
	return p.Remaining() <= 0
}

// Consume takes one unit from the pool. It returns false without side
// effects when the pool is exhausted or destroyed. The first Consume
// after a full state arms the replenishment cycle; further draws within
// the same cycle do not reschedule it, so the drain rate never affects
// refill timing.
func (p *Pool) Consume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		log.L().Warn("consume on a destroyed pool",
			zap.Int("capacity", p.capacity))
		return false
	}
	if p.remaining <= 0 {
		return false
	}

	p.remaining--
	if p.timer == nil {
		p.timer = p.clock.AfterFunc(p.interval, p.cycleElapsed)
	}
	return true
}

// Destroy cancels any pending replenishment cycle. It is idempotent,
// and the replenished callback never fires afterwards.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.destroyed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Pool) cycleElapsed() {
	p.mu.Lock()
	p.timer = nil
	// Destroy may have raced with an already-fired timer; the flag
	// check here is what guarantees no callback after destruction.
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	wasExhausted := p.remaining <= 0
	p.remaining = p.capacity
	notify := p.onReplenished
	p.mu.Unlock()

	log.L().Debug("pool replenished",
		zap.Int("capacity", p.capacity),
		zap.Bool("was-exhausted", wasExhausted))

	if !wasExhausted {
		return
	}

	// Cancel check right before delivery: a Destroy that landed after
	// the reset must still suppress the callback. The lock is not
	// held across the call itself, so the callback may read the pool
	// (it sees a full counter) or call Consume again.
	p.mu.Lock()
	destroyed := p.destroyed
	p.mu.Unlock()
	if !destroyed {
		notify()
	}
}
