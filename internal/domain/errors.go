package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidTrade = errors.New("invalid trade request")
	ErrRiskRejected = errors.New("rejected by risk limits")
	ErrDuplicate    = errors.New("duplicate opportunity")
	ErrMissingKey   = errors.New("api key not configured")
	ErrLockHeld     = errors.New("lock already held")
)
