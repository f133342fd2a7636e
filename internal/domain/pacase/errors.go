package pacase

import "errors"

var (
	ErrCaseNotFound      = errors.New("case not found")
	ErrCaseAlreadyExists = errors.New("case with this MRN already exists")
	ErrIllegalTransition = errors.New("transition not permitted for this status and role")
	ErrAlreadyClaimed    = errors.New("case has already been claimed")
	ErrStaleCase         = errors.New("case was modified concurrently, retry")
	ErrInvalidStatus     = errors.New("invalid case status")
	ErrInvalidDecision   = errors.New("invalid physician decision")
	ErrMRNRequired       = errors.New("MRN is required")
)
