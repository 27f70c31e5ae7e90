package domain

import "fmt"

// Sentinel errors for the client core. Wrap with %w so call sites can test
// with errors.Is.
var (
	ErrMalformedMessage   = fmt.Errorf("malformed message")
	ErrUnknownMessageType = fmt.Errorf("unknown message type")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
	ErrSchemaInvalid      = fmt.Errorf("response failed schema validation")
	ErrAPIStatus          = fmt.Errorf("unexpected API status")
)
