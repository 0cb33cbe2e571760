package validate

import (
	"math"
	"reflect"

	derror "github.com/hanfei1991/replenish/pkg/errors"
)

// Mode controls how non-integer arguments are reported. Collapsed folds
// type violations into the value error kinds, which is what the minimal
// public API historically did; Distinct keeps them apart.
type Mode int

const (
	Collapsed Mode = iota
	Distinct
)

// PositiveNumber reports whether v is strictly greater than zero.
func PositiveNumber(v float64) bool {
	return v > 0
}

// IntegerNumber reports whether v is finite with no fractional part.
func IntegerNumber(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v == math.Trunc(v)
}

// Callable reports whether v is a non-nil function value.
func Callable(v interface{}) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// PoolArgs checks a raw (size, interval-in-milliseconds, callback)
// triple and returns the first violated rule. Rules are checked in a
// fixed order: size positive, size integer, interval positive, interval
// integer, callback callable. Nothing is aggregated.
func PoolArgs(size, intervalMs float64, callback interface{}, mode Mode) error {
	if !PositiveNumber(size) {
		return derror.ErrInvalidPoolSizeValue.GenWithStackByArgs(size)
	}
	if !IntegerNumber(size) {
		if mode == Distinct {
			return derror.ErrInvalidPoolSizeType.GenWithStackByArgs(size)
		}
		return derror.ErrInvalidPoolSizeValue.GenWithStackByArgs(size)
	}
	if !PositiveNumber(intervalMs) {
		return derror.ErrInvalidIntervalValue.GenWithStackByArgs(intervalMs)
	}
	if !IntegerNumber(intervalMs) {
		if mode == Distinct {
			return derror.ErrInvalidIntervalType.GenWithStackByArgs(intervalMs)
		}
		return derror.ErrInvalidIntervalValue.GenWithStackByArgs(intervalMs)
	}
	if !Callable(callback) {
		return derror.ErrInvalidCallbackType.GenWithStackByArgs()
	}
	return nil
}
