package replenish

import (
	"testing"
	"time"

	perrors "github.com/pingcap/errors"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/replenish/pkg/clock"
	derror "github.com/hanfei1991/replenish/pkg/errors"
	"github.com/hanfei1991/replenish/pkg/validate"
)

func newMockPool(t *testing.T, capacity int, interval time.Duration, onReplenished func()) (*Pool, *clock.Mock) {
	p, err := NewPool(capacity, interval, onReplenished)
	require.NoError(t, err)

	clk := clock.NewMock()
	p.clock = clk
	return p, clk
}

func TestPoolStartsFull(t *testing.T) {
	t.Parallel()

	p, _ := newMockPool(t, 3, 10*time.Millisecond, func() {})
	require.Equal(t, 3, p.Capacity())
	require.Equal(t, 3, p.Remaining())
	require.False(t, p.Exhausted())
}

func TestPoolConsumeToExhaustion(t *testing.T) {
	t.Parallel()

	p, _ := newMockPool(t, 3, 10*time.Millisecond, func() {})
	for i := 0; i < 3; i++ {
		require.True(t, p.Consume())
	}
	require.Equal(t, 0, p.Remaining())
	require.True(t, p.Exhausted())

	// One draw past exhaustion is rejected and changes nothing.
	require.False(t, p.Consume())
	require.Equal(t, 0, p.Remaining())
}

func TestPoolReplenishWithoutExhaustion(t *testing.T) {
	t.Parallel()

	var fired int
	p, clk := newMockPool(t, 3, 10*time.Millisecond, func() {
		fired++
	})

	require.True(t, p.Consume())
	require.Equal(t, 2, p.Remaining())

	clk.Add(10 * time.Millisecond)
	require.Equal(t, 3, p.Remaining())
	// The callback only fires when the cycle found the pool at zero.
	require.Equal(t, 0, fired)
}

func TestPoolNotifiesWhenExhausted(t *testing.T) {
	t.Parallel()

	var fired int
	var seenAtFire int
	p, clk := newMockPool(t, 1, 5*time.Millisecond, func() {})
	p.onReplenished = func() {
		fired++
		seenAtFire = p.Remaining()
	}

	require.True(t, p.Consume())
	require.True(t, p.Exhausted())

	clk.Add(5 * time.Millisecond)
	require.Equal(t, 1, fired)
	// The reset happens before the notification.
	require.Equal(t, 1, seenAtFire)
	require.Equal(t, 1, p.Remaining())
}

func TestPoolCycleStartsOnFirstConsume(t *testing.T) {
	t.Parallel()

	var fired int
	p, clk := newMockPool(t, 3, 10*time.Millisecond, func() {
		fired++
	})

	// An untouched pool never cycles.
	clk.Add(time.Hour)
	require.Equal(t, 3, p.Remaining())
	require.Equal(t, 0, fired)

	// Later draws within the cycle do not reschedule the refill: the
	// cycle armed at the first draw elapses 10ms after it, not 10ms
	// after the last one.
	require.True(t, p.Consume())
	clk.Add(5 * time.Millisecond)
	require.True(t, p.Consume())
	require.True(t, p.Consume())
	require.True(t, p.Exhausted())

	clk.Add(5 * time.Millisecond)
	require.Equal(t, 3, p.Remaining())
	require.Equal(t, 1, fired)

	// The refilled pool is idle again until the next draw.
	clk.Add(time.Hour)
	require.Equal(t, 1, fired)
}

func TestPoolDestroyCancelsCycle(t *testing.T) {
	t.Parallel()

	var fired int
	p, clk := newMockPool(t, 1, 5*time.Millisecond, func() {
		fired++
	})

	require.True(t, p.Consume())
	p.Destroy()

	clk.Add(time.Hour)
	require.Equal(t, 0, fired)
	require.Equal(t, 0, p.Remaining())

	// Destroy is idempotent, and a destroyed pool rejects draws.
	p.Destroy()
	require.False(t, p.Consume())
}

func TestPoolDestroyAtCycleInstant(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()

	var firstFired, secondFired int
	first, err := NewPool(1, 5*time.Millisecond, func() {})
	require.NoError(t, err)
	first.clock = clk

	second, err := NewPool(1, 5*time.Millisecond, func() {
		secondFired++
	})
	require.NoError(t, err)
	second.clock = clk

	first.onReplenished = func() {
		firstFired++
		second.Destroy()
	}

	require.True(t, first.Consume())
	require.True(t, second.Consume())

	// Both cycles elapse at the same instant. The first delivery
	// destroys the second pool, whose own pending cycle must then be
	// suppressed even though it was already due.
	clk.Add(5 * time.Millisecond)
	require.Equal(t, 1, firstFired)
	require.Equal(t, 0, secondFired)
	require.Equal(t, 0, second.Remaining())
}

func TestPoolValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		capacity int
		interval time.Duration
		callback func()
		expected *perrors.Error
	}{
		{capacity: 0, interval: time.Second, callback: func() {}, expected: derror.ErrInvalidPoolSizeValue},
		{capacity: -1, interval: time.Second, callback: func() {}, expected: derror.ErrInvalidPoolSizeValue},
		{capacity: 1, interval: 0, callback: func() {}, expected: derror.ErrInvalidIntervalValue},
		{capacity: 1, interval: -time.Second, callback: func() {}, expected: derror.ErrInvalidIntervalValue},
		{capacity: 1, interval: time.Second, callback: nil, expected: derror.ErrInvalidCallbackType},
	}

	for _, tc := range testCases {
		p, err := NewPool(tc.capacity, tc.interval, tc.callback)
		require.Nil(t, p)
		require.True(t, tc.expected.Equal(err), "unexpected error %v", err)
	}
}

func TestNumberDecodesBothTOMLShapes(t *testing.T) {
	t.Parallel()

	// Config files naturally write `size = 2`, which TOML hands over
	// as int64; `interval-ms = 2.5` arrives as float64. Both must
	// land in the raw-number fields.
	var n Number
	require.NoError(t, n.UnmarshalTOML(int64(2)))
	require.Equal(t, Number(2), n)

	require.NoError(t, n.UnmarshalTOML(2.5))
	require.Equal(t, Number(2.5), n)

	require.Error(t, n.UnmarshalTOML("2"))
	require.Error(t, n.UnmarshalTOML(nil))
}

func TestPoolFromSpecTypeErrors(t *testing.T) {
	t.Parallel()

	cb := func() {}

	// Distinct mode keeps value and type violations apart.
	_, err := NewPoolFromSpec(PoolSpec{Size: 1.5, IntervalMs: 10}, validate.Distinct, cb)
	require.True(t, derror.ErrInvalidPoolSizeType.Equal(err))
	_, err = NewPoolFromSpec(PoolSpec{Size: 2, IntervalMs: 0.5}, validate.Distinct, cb)
	require.True(t, derror.ErrInvalidIntervalType.Equal(err))

	// Collapsed mode folds them into the value kinds.
	_, err = NewPoolFromSpec(PoolSpec{Size: 1.5, IntervalMs: 10}, validate.Collapsed, cb)
	require.True(t, derror.ErrInvalidPoolSizeValue.Equal(err))
	_, err = NewPoolFromSpec(PoolSpec{Size: 2, IntervalMs: 0.5}, validate.Collapsed, cb)
	require.True(t, derror.ErrInvalidIntervalValue.Equal(err))

	// Value violations are checked before type violations.
	_, err = NewPoolFromSpec(PoolSpec{Size: -1.5, IntervalMs: 10}, validate.Distinct, cb)
	require.True(t, derror.ErrInvalidPoolSizeValue.Equal(err))

	p, err := NewPoolFromSpec(PoolSpec{Size: 2, IntervalMs: 10}, validate.Distinct, cb)
	require.NoError(t, err)
	require.Equal(t, 2, p.Remaining())
	require.Equal(t, 10*time.Millisecond, p.interval)
}
