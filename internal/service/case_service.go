package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/internal/domain/pacase"
	"github.com/careloop/priorauth/internal/domain/review"
	"github.com/careloop/priorauth/pkg/metrics"
)

type CaseService struct {
	repo       pacase.Repository
	reviewRepo review.Repository
	auditSvc   *AuditService
	metrics    *metrics.Collector
	log        *zap.Logger
}

// NewCaseService wires the workflow engine. m may be nil in tests.
func NewCaseService(repo pacase.Repository, reviewRepo review.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *CaseService {
	return &CaseService{
		repo:       repo,
		reviewRepo: reviewRepo,
		auditSvc:   auditSvc,
		metrics:    m,
		log:        log,
	}
}

// CaseDetail is a case plus its review items and the read-time projections.
// Progress and readiness are computed here on every read and never persisted,
// so they cannot go stale when a review item changes.
type CaseDetail struct {
	Case            *pacase.Case       `json:"case"`
	Review          *review.CaseReview `json:"review"`
	ProgressPercent int                `json:"progress_percent"`
	ReadyForPA      bool               `json:"ready_for_pa"`
}

// IntakeCommand creates a case together with its initial review items.
type IntakeCommand struct {
	Case            pacase.CreateCaseCommand
	Rules           []*review.PayerRule
	Gaps            []*review.PolicyGap
	Risks           []*review.RiskFactor
	Recommendations []*review.Recommendation
	Analysis        *review.Analysis
}

func (s *CaseService) IntakeCase(ctx context.Context, cmd *IntakeCommand, actor pacase.Actor, ip string) (*pacase.Case, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}
	if err := validateIntake(cmd); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByMRN(ctx, cmd.Case.MRN)
	if err != nil {
		s.log.Error("failed to check MRN uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, pacase.ErrCaseAlreadyExists
	}

	c := &pacase.Case{
		PatientName:      strings.TrimSpace(cmd.Case.PatientName),
		MRN:              strings.TrimSpace(cmd.Case.MRN),
		ChiefComplaint:   cmd.Case.ChiefComplaint,
		Diagnoses:        cmd.Case.Diagnoses,
		ProblemList:      cmd.Case.ProblemList,
		RequestedService: cmd.Case.RequestedService,
		PayerName:        cmd.Case.PayerName,
		Status:           pacase.StatusNew,
		CreatedBy:        actor.ID,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.log.Error("failed to create case", zap.Error(err))
		return nil, fmt.Errorf("creating case: %w", err)
	}

	bundle := &review.CaseReview{
		Rules:           cmd.Rules,
		Gaps:            cmd.Gaps,
		Risks:           cmd.Risks,
		Recommendations: cmd.Recommendations,
		Analysis:        cmd.Analysis,
	}
	if err := s.reviewRepo.CreateBundle(ctx, c.ID, bundle); err != nil {
		s.log.Error("failed to create review bundle", zap.String("case_id", c.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("creating review items: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       actor.ID,
		UserRole:     actor.Role,
		Action:       domain.ActionCreate,
		ResourceType: "case",
		ResourceID:   c.ID.String(),
		CaseID:       &c.ID,
		IPAddress:    ip,
	})
	if s.metrics != nil {
		s.metrics.CasesCreatedTotal.Inc()
	}

	s.log.Info("case created",
		zap.String("case_id", c.ID.String()),
		zap.String("mrn", c.MRN),
		zap.String("created_by", actor.ID.String()),
	)

	return c, nil
}

func (s *CaseService) GetCase(ctx context.Context, id uuid.UUID, actor pacase.Actor, ip string) (*CaseDetail, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rv, err := s.reviewRepo.GetByCase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading review items: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       actor.ID,
		UserRole:     actor.Role,
		Action:       domain.ActionRead,
		ResourceType: "case",
		ResourceID:   id.String(),
		CaseID:       &id,
		IPAddress:    ip,
	})

	return &CaseDetail{
		Case:            c,
		Review:          rv,
		ProgressPercent: review.ProgressPercent(rv),
		ReadyForPA:      review.ReadyForPA(rv),
	}, nil
}

func (s *CaseService) ListCases(ctx context.Context, q *pacase.ListCasesQuery, actor pacase.Actor) (*pacase.PagedCases, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

// Claim assigns a new case to the acting user and moves it to in_progress.
// The status guard lives in the repository's conditional update, so two
// concurrent claimers cannot both win.
func (s *CaseService) Claim(ctx context.Context, id uuid.UUID, actor pacase.Actor, ip string) (*pacase.Case, error) {
	if !pacase.CanTransition(pacase.StatusNew, actor.Role, pacase.StatusInProgress) {
		return nil, ErrForbidden
	}

	c, err := s.repo.Claim(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       actor.ID,
		UserRole:     actor.Role,
		Action:       domain.ActionClaim,
		ResourceType: "case",
		ResourceID:   id.String(),
		CaseID:       &id,
		IPAddress:    ip,
	})
	if s.metrics != nil {
		s.metrics.CasesClaimedTotal.Inc()
	}

	s.log.Info("case claimed",
		zap.String("case_id", id.String()),
		zap.String("assigned_to", actor.ID.String()),
	)

	return c, nil
}

// Transition applies a generic workflow edge: send to physician, pull back to
// in_progress, record the payer's approve/deny verdict, resolve an appeal.
// Claiming, physician decisions, submission and appeal start have dedicated
// operations because they carry extra state.
func (s *CaseService) Transition(ctx context.Context, id uuid.UUID, cmd *pacase.TransitionCommand, actor pacase.Actor, ip string) (*pacase.Case, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := c.Status
	if err := c.TransitionTo(cmd.To, actor.Role); err != nil {
		return nil, err
	}

	change := &pacase.StatusChange{
		CaseID:     c.ID,
		FromStatus: from,
		ToStatus:   cmd.To,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Note:       cmd.Notes,
	}
	if err := s.repo.UpdateStatus(ctx, c, change); err != nil {
		return nil, fmt.Errorf("updating case status: %w", err)
	}

	s.audit(ctx, domain.ActionTransition, c.ID, actor, ip,
		fmt.Sprintf(`{"from":%q,"to":%q}`, from, cmd.To))
	if s.metrics != nil {
		s.metrics.CaseTransitionsTotal.WithLabelValues(string(cmd.To)).Inc()
	}

	return c, nil
}

// RecordPhysicianDecision handles approve, defer and escalate. Approve moves
// the case to ready; defer and escalate both return it to in_progress, with
// the decision kind preserved for the director queue.
func (s *CaseService) RecordPhysicianDecision(ctx context.Context, id uuid.UUID, kind pacase.DecisionKind, notes string, actor pacase.Actor, ip string) (*pacase.Case, error) {
	if actor.Role != domain.RolePhysician && actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := c.Status
	if err := c.RecordDecision(kind, actor.ID, actor.Name, actor.Role, notes); err != nil {
		return nil, err
	}

	change := &pacase.StatusChange{
		CaseID:     c.ID,
		FromStatus: from,
		ToStatus:   c.Status,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Note:       notes,
	}
	if err := s.repo.UpdateStatus(ctx, c, change); err != nil {
		return nil, fmt.Errorf("updating case status: %w", err)
	}

	s.audit(ctx, domain.ActionDecision, c.ID, actor, ip,
		fmt.Sprintf(`{"decision":%q,"from":%q,"to":%q}`, kind, from, c.Status))
	if s.metrics != nil {
		s.metrics.PhysicianDecisionsTotal.WithLabelValues(string(kind)).Inc()
	}

	return c, nil
}

// SubmitPA moves a ready case to submitted and records the payer hand-off.
func (s *CaseService) SubmitPA(ctx context.Context, id uuid.UUID, reference string, actor pacase.Actor, ip string) (*pacase.Case, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := c.Status
	if err := c.TransitionTo(pacase.StatusSubmitted, actor.Role); err != nil {
		return nil, err
	}
	c.Submission = &pacase.PayerSubmission{
		PayerName:   c.PayerName,
		Reference:   reference,
		SubmittedBy: actor.ID,
		SubmittedAt: nowUTC(),
	}

	// Submission is legal whenever the case is ready; log when the evidence
	// gate disagrees so reviewers can follow up.
	if rv, rerr := s.reviewRepo.GetByCase(ctx, id); rerr == nil && !review.ReadyForPA(rv) {
		s.log.Warn("PA submitted before readiness gate was met",
			zap.String("case_id", id.String()),
			zap.Int("progress", review.ProgressPercent(rv)),
		)
	}

	change := &pacase.StatusChange{
		CaseID:     c.ID,
		FromStatus: from,
		ToStatus:   pacase.StatusSubmitted,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Note:       "PA submitted to " + c.PayerName,
	}
	if err := s.repo.UpdateStatus(ctx, c, change); err != nil {
		return nil, fmt.Errorf("updating case status: %w", err)
	}

	s.audit(ctx, domain.ActionSubmit, c.ID, actor, ip,
		fmt.Sprintf(`{"payer":%q,"reference":%q}`, c.PayerName, reference))
	if s.metrics != nil {
		s.metrics.PASubmissionsTotal.Inc()
	}

	return c, nil
}

// StartAppeal moves a denied case to appealing and records the grounds.
func (s *CaseService) StartAppeal(ctx context.Context, id uuid.UUID, grounds string, actor pacase.Actor, ip string) (*pacase.Case, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := c.Status
	if err := c.TransitionTo(pacase.StatusAppealing, actor.Role); err != nil {
		return nil, err
	}
	c.Appeal = &pacase.AppealRecord{
		StartedBy: actor.ID,
		StartedAt: nowUTC(),
		Grounds:   grounds,
	}

	change := &pacase.StatusChange{
		CaseID:     c.ID,
		FromStatus: from,
		ToStatus:   pacase.StatusAppealing,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		Note:       grounds,
	}
	if err := s.repo.UpdateStatus(ctx, c, change); err != nil {
		return nil, fmt.Errorf("updating case status: %w", err)
	}

	s.audit(ctx, domain.ActionAppeal, c.ID, actor, ip, "")

	return c, nil
}

func (s *CaseService) GetHistory(ctx context.Context, id uuid.UUID, actor pacase.Actor) ([]*pacase.StatusChange, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

func (s *CaseService) AddNote(ctx context.Context, id uuid.UUID, body string, actor pacase.Actor, ip string) (*pacase.Note, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(body) == "" {
		return nil, &ValidationError{Fields: []string{"body is required"}}
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	n := &pacase.Note{
		CaseID:     id,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		AuthorRole: actor.Role,
		Body:       body,
	}
	if err := s.repo.AddNote(ctx, n); err != nil {
		return nil, fmt.Errorf("adding note: %w", err)
	}

	s.audit(ctx, domain.ActionUpdate, id, actor, ip, `{"note":"added"}`)

	return n, nil
}

func (s *CaseService) ListNotes(ctx context.Context, id uuid.UUID, actor pacase.Actor) ([]*pacase.Note, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListNotes(ctx, id)
}

func (s *CaseService) audit(ctx context.Context, action domain.AuditAction, caseID uuid.UUID, actor pacase.Actor, ip, changes string) {
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       actor.ID,
		UserRole:     actor.Role,
		Action:       action,
		ResourceType: "case",
		ResourceID:   caseID.String(),
		CaseID:       &caseID,
		IPAddress:    ip,
		Changes:      changes,
	})
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func validateIntake(cmd *IntakeCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.Case.PatientName) == "" {
		errs = append(errs, "patient_name is required")
	}
	if strings.TrimSpace(cmd.Case.MRN) == "" {
		errs = append(errs, "mrn is required")
	}
	for _, r := range cmd.Risks {
		if !r.Severity.IsValid() {
			errs = append(errs, "risk severity is invalid")
			break
		}
	}
	if cmd.Analysis != nil && !cmd.Analysis.Confidence.IsValid() {
		errs = append(errs, "analysis confidence is invalid")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
