package review

import "errors"

var (
	ErrItemNotFound      = errors.New("review item not found")
	ErrInvalidItemStatus = errors.New("invalid review item status")
	ErrInvalidSeverity   = errors.New("invalid risk severity")
	ErrInvalidConfidence = errors.New("invalid confidence level")
)
