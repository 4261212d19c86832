package models

import "errors"

// Custom errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
	ErrInvalidID         = errors.New("invalid ID format")
	ErrUnknownSport      = errors.New("unknown sport key")
	ErrUnknownMarket     = errors.New("unknown market type")
	ErrBudgetExhausted   = errors.New("upstream request budget exhausted")
	ErrMalformedPayload  = errors.New("malformed upstream payload")
	ErrNoModelsAvailable = errors.New("no ensemble models available")
	ErrAlreadySettled    = errors.New("prediction already settled")
	ErrPredictionVoided  = errors.New("prediction voided")
	ErrNoQuotes          = errors.New("no quotes for market")
)
