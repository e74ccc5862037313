package alphavantage

import "errors"

var (
	ErrEmptySymbol      = errors.New("symbol cannot be empty")
	ErrUnknownTimeframe = errors.New("unsupported alpha vantage timeframe")
	ErrUnknownInterval  = errors.New("unsupported alpha vantage intraday interval")
)
