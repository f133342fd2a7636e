package pacase

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new case in status new. Returns ErrCaseAlreadyExists
	// on duplicate MRN.
	Create(ctx context.Context, c *Case) error

	// GetByID retrieves a case by primary key. Returns ErrCaseNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)

	// Claim atomically moves a case from new to in_progress and records the
	// assignment, guarded by a conditional update on status. Exactly one of
	// two concurrent claimers wins; the loser gets ErrAlreadyClaimed. The
	// matching history entry is written in the same transaction.
	Claim(ctx context.Context, id uuid.UUID, actor Actor) (*Case, error)

	// UpdateStatus persists the case's current status, decision, submission
	// and appeal fields, and appends the history entry, in one transaction.
	// The guard on the previous status returns ErrCaseNotFound if the row
	// changed underneath the caller.
	UpdateStatus(ctx context.Context, c *Case, change *StatusChange) error

	// ListHistory returns a case's status history, oldest first.
	ListHistory(ctx context.Context, caseID uuid.UUID) ([]*StatusChange, error)

	// AddNote appends a collaboration note.
	AddNote(ctx context.Context, n *Note) error

	// ListNotes returns a case's notes, oldest first.
	ListNotes(ctx context.Context, caseID uuid.UUID) ([]*Note, error)

	// List returns a paginated, filtered list of cases.
	List(ctx context.Context, q *ListCasesQuery) (*PagedCases, error)

	// ExistsByMRN checks for uniqueness without fetching the full record.
	ExistsByMRN(ctx context.Context, mrn string) (bool, error)
}
