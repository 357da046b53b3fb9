package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrBatchNotFound       = errors.New("batch not found")
	ErrProductNameRequired = errors.New("product name is required")
	ErrInvalidWeight       = errors.New("invalid unit weight")
	ErrQueueUnavailable    = errors.New("queue unavailable")
	ErrSerialCapacity      = errors.New("serial numbers exhausted for product line")
)
