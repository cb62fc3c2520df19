package models

import "errors"

// Custom errors
var (
	ErrMarketNotFound = errors.New("market does not exist")
	ErrNotFound       = errors.New("record not found")
	ErrInvalidTrade   = errors.New("invalid trade row")
)
