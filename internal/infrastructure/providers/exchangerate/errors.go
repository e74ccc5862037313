package exchangerate

import "errors"

var (
	ErrInvalidCurrency = errors.New("currency code must be three letters")
	ErrInvalidPair     = errors.New("pair must look like EUR/USD")
)
