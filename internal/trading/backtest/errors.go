package backtest

import "errors"

var (
	// ErrInsufficientData is returned when prices and regimes share too few dated rows
	ErrInsufficientData = errors.New("insufficient aligned data")

	// ErrUnknownCondition is returned for an entry or exit rule name that is not registered
	ErrUnknownCondition = errors.New("unknown condition")

	// ErrInvalidParams is returned when run parameters are out of range
	ErrInvalidParams = errors.New("invalid backtest parameters")
)
