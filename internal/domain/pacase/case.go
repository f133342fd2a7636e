package pacase

import (
	"time"

	"github.com/google/uuid"

	"github.com/careloop/priorauth/internal/domain"
)

// Status is the workflow state of a utilization-management case.
//
// State transitions possibilities:
//
//	new → in_progress → {needs_physician ⇄ in_progress} → ready → submitted → {approved | denied}
//	denied → appealing → {approved | denied}
type Status string

const (
	StatusNew            Status = "new"
	StatusInProgress     Status = "in_progress"
	StatusNeedsPhysician Status = "needs_physician"
	StatusReady          Status = "ready"
	StatusSubmitted      Status = "submitted"
	StatusApproved       Status = "approved"
	StatusDenied         Status = "denied"
	StatusAppealing      Status = "appealing"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusNeedsPhysician, StatusReady,
		StatusSubmitted, StatusApproved, StatusDenied, StatusAppealing:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the workflow. Approved is final;
// denied is not, because a denial can still be appealed.
func (s Status) IsTerminal() bool {
	return s == StatusApproved
}

// transitions is the role-gated edge table: (current status, acting role) →
// permitted next statuses. Auditors appear nowhere; they are read-only.
// Admins are handled in CanTransition as the union over both working roles.
var transitions = map[Status]map[domain.Role][]Status{
	StatusNew: {
		domain.RoleCaseManager: {StatusInProgress},
	},
	StatusInProgress: {
		domain.RoleCaseManager: {StatusNeedsPhysician, StatusReady},
		domain.RolePhysician:   {StatusReady, StatusInProgress},
	},
	StatusNeedsPhysician: {
		domain.RoleCaseManager: {StatusInProgress},
		domain.RolePhysician:   {StatusReady, StatusInProgress},
	},
	StatusReady: {
		domain.RoleCaseManager: {StatusSubmitted, StatusInProgress},
		domain.RolePhysician:   {StatusSubmitted, StatusInProgress},
	},
	StatusSubmitted: {
		domain.RoleCaseManager: {StatusApproved, StatusDenied},
	},
	StatusDenied: {
		domain.RoleCaseManager: {StatusAppealing},
	},
	StatusAppealing: {
		domain.RoleCaseManager: {StatusApproved, StatusDenied},
	},
}

// CanTransition reports whether role may move a case from one status to another.
func CanTransition(from Status, role domain.Role, to Status) bool {
	if role == domain.RoleAdmin {
		return CanTransition(from, domain.RoleCaseManager, to) ||
			CanTransition(from, domain.RolePhysician, to)
	}
	for _, s := range transitions[from][role] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses role may move a case in status from to.
func AllowedTargets(from Status, role domain.Role) []Status {
	if role == domain.RoleAdmin {
		seen := map[Status]bool{}
		var out []Status
		for _, r := range []domain.Role{domain.RoleCaseManager, domain.RolePhysician} {
			for _, s := range transitions[from][r] {
				if !seen[s] {
					seen[s] = true
					out = append(out, s)
				}
			}
		}
		return out
	}
	return transitions[from][role]
}

// DecisionKind is the outcome of a physician review.
type DecisionKind string

const (
	DecisionApproved  DecisionKind = "approved"
	DecisionDeferred  DecisionKind = "deferred"
	DecisionEscalated DecisionKind = "escalated"
)

func (d DecisionKind) IsValid() bool {
	switch d {
	case DecisionApproved, DecisionDeferred, DecisionEscalated:
		return true
	}
	return false
}

// TargetStatus maps a physician decision to the workflow status it produces.
// Deferred and escalated both route back to in_progress; the decision kind is
// what distinguishes them in the medical-director queue.
func (d DecisionKind) TargetStatus() Status {
	if d == DecisionApproved {
		return StatusReady
	}
	return StatusInProgress
}

// PhysicianDecision records the clinical sign-off (or refusal) on a case.
type PhysicianDecision struct {
	Decision  DecisionKind `json:"decision"`
	DecidedBy uuid.UUID    `json:"decided_by"`
	DeciderNm string       `json:"decider_name"`
	DecidedAt time.Time    `json:"decided_at"`
	Notes     string       `json:"notes,omitempty"`
}

// PayerSubmission records the PA request hand-off to the payer.
type PayerSubmission struct {
	PayerName   string    `json:"payer_name"`
	Reference   string    `json:"reference,omitempty"`
	SubmittedBy uuid.UUID `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// AppealRecord records that a denial is being contested.
type AppealRecord struct {
	StartedBy uuid.UUID `json:"started_by"`
	StartedAt time.Time `json:"started_at"`
	Grounds   string    `json:"grounds,omitempty"`
}

type Case struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"` // Soft Delete

	PatientName    string   `gorm:"column:patient_name;type:varchar(200);not null"`
	MRN            string   `gorm:"column:mrn;type:varchar(50);uniqueIndex;not null"`
	ChiefComplaint string   `gorm:"column:chief_complaint;type:text"`
	Diagnoses      []string `gorm:"column:diagnoses;serializer:json"`
	ProblemList    []string `gorm:"column:problem_list;serializer:json"`

	// Requested service under prior-authorization review
	RequestedService string `gorm:"column:requested_service;type:text"`
	PayerName        string `gorm:"column:payer_name;type:varchar(200)"`

	Status Status `gorm:"column:status;type:varchar(30);not null;default:'new';index"`

	// Assignment is present iff Status != new. Claim sets all four fields in
	// the same transaction that moves the case to in_progress.
	AssignedTo   *uuid.UUID  `gorm:"column:assigned_to;type:uuid;index"`
	AssigneeName string      `gorm:"column:assignee_name;type:varchar(200)"`
	AssigneeRole domain.Role `gorm:"column:assignee_role;type:varchar(30)"`
	AssignedAt   *time.Time  `gorm:"column:assigned_at"`

	PhysicianDecision *PhysicianDecision `gorm:"column:physician_decision;serializer:json"`
	Submission        *PayerSubmission   `gorm:"column:submission;serializer:json"`
	Appeal            *AppealRecord      `gorm:"column:appeal;serializer:json"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Case) TableName() string {
	return "clinical.cases"
}

func (c *Case) IsClaimed() bool {
	return c.AssignedTo != nil
}

// TransitionTo validates the edge against the role-gated table and applies it.
// The caller persists the status change together with its history entry.
func (c *Case) TransitionTo(to Status, role domain.Role) error {
	if !to.IsValid() {
		return ErrInvalidStatus
	}
	if !CanTransition(c.Status, role, to) {
		return ErrIllegalTransition
	}
	c.Status = to
	return nil
}

// RecordDecision applies a physician decision: sets the decision record and
// moves the case to the status the decision implies.
func (c *Case) RecordDecision(kind DecisionKind, decidedBy uuid.UUID, deciderName string, role domain.Role, notes string) error {
	if !kind.IsValid() {
		return ErrInvalidDecision
	}
	target := kind.TargetStatus()
	if !CanTransition(c.Status, role, target) {
		return ErrIllegalTransition
	}
	c.PhysicianDecision = &PhysicianDecision{
		Decision:  kind,
		DecidedBy: decidedBy,
		DeciderNm: deciderName,
		DecidedAt: time.Now().UTC(),
		Notes:     notes,
	}
	c.Status = target
	return nil
}

// Actor identifies the user performing a workflow operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role domain.Role
}

// StatusChange is one entry in a case's append-only status history.
type StatusChange struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	CaseID     uuid.UUID   `gorm:"column:case_id;type:uuid;not null;index"`
	FromStatus Status      `gorm:"column:from_status;type:varchar(30);not null"`
	ToStatus   Status      `gorm:"column:to_status;type:varchar(30);not null"`
	ActorID    uuid.UUID   `gorm:"column:actor_id;type:uuid;not null"`
	ActorName  string      `gorm:"column:actor_name;type:varchar(200)"`
	ActorRole  domain.Role `gorm:"column:actor_role;type:varchar(30);not null"`
	Note       string      `gorm:"column:note;type:text"`
}

func (StatusChange) TableName() string {
	return "clinical.case_status_history"
}

// Note is an append-only collaboration note on a case.
type Note struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	CaseID     uuid.UUID   `gorm:"column:case_id;type:uuid;not null;index"`
	AuthorID   uuid.UUID   `gorm:"column:author_id;type:uuid;not null"`
	AuthorName string      `gorm:"column:author_name;type:varchar(200)"`
	AuthorRole domain.Role `gorm:"column:author_role;type:varchar(30);not null"`
	Body       string      `gorm:"column:body;type:text;not null"`
}

func (Note) TableName() string {
	return "clinical.case_notes"
}

type CreateCaseCommand struct {
	PatientName      string
	MRN              string
	ChiefComplaint   string
	Diagnoses        []string
	ProblemList      []string
	RequestedService string
	PayerName        string
	CreatedBy        uuid.UUID
}

type TransitionCommand struct {
	To    Status
	Notes string
}

// ListCasesQuery defines filtering and pagination for case list queries.
type ListCasesQuery struct {
	Status     *Status
	AssignedTo *uuid.UUID
	// DirectorQueue selects cases awaiting medical-director attention:
	// needs_physician, or back in progress after an escalated decision.
	DirectorQueue bool
	Search        string // patient name / MRN
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string // "asc" | "desc"
}

type PagedCases struct {
	Cases      []*Case
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
