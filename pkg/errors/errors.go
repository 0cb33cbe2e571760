package errors

import (
	"github.com/pingcap/errors"
)

// all errors in this package
var (
	// pool construction errors
	ErrInvalidPoolSizeValue = errors.Normalize(
		"pool size must be a positive number, got %v",
		errors.RFCCodeText("RPLN:ErrInvalidPoolSizeValue"),
	)
	ErrInvalidPoolSizeType = errors.Normalize(
		"pool size must be an integer, got %v",
		errors.RFCCodeText("RPLN:ErrInvalidPoolSizeType"),
	)
	ErrInvalidIntervalValue = errors.Normalize(
		"replenishment interval must be a positive number, got %v",
		errors.RFCCodeText("RPLN:ErrInvalidIntervalValue"),
	)
	ErrInvalidIntervalType = errors.Normalize(
		"replenishment interval must be an integer, got %v",
		errors.RFCCodeText("RPLN:ErrInvalidIntervalType"),
	)
	ErrInvalidCallbackType = errors.Normalize(
		"replenished callback is not callable",
		errors.RFCCodeText("RPLN:ErrInvalidCallbackType"),
	)

	// group errors
	ErrNoResourcePoolsFound = errors.Normalize(
		"group has no resource pools",
		errors.RFCCodeText("RPLN:ErrNoResourcePoolsFound"),
	)
)
