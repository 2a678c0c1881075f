package agent

import "errors"

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrProviderExists    = errors.New("provider already registered")
	ErrEmptyProviderName = errors.New("provider name is empty")
	ErrMissingAPIKey     = errors.New("api key is required")
)
