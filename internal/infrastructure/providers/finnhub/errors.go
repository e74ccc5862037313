package finnhub

import "errors"

var (
	ErrEmptySymbol     = errors.New("symbol cannot be empty")
	ErrCandleStatus    = errors.New("unexpected finnhub candle status")
	ErrCandleMalformed = errors.New("finnhub candle arrays have different lengths")
)
