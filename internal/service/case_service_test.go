package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/internal/domain/pacase"
	"github.com/careloop/priorauth/internal/domain/review"
)

type mockCaseRepo struct {
	mu      sync.Mutex
	store   map[uuid.UUID]*pacase.Case
	history map[uuid.UUID][]*pacase.StatusChange
	notes   map[uuid.UUID][]*pacase.Note
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{
		store:   make(map[uuid.UUID]*pacase.Case),
		history: make(map[uuid.UUID][]*pacase.StatusChange),
		notes:   make(map[uuid.UUID][]*pacase.Note),
	}
}

func (m *mockCaseRepo) Create(_ context.Context, c *pacase.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.store[c.ID] = c
	return nil
}

func (m *mockCaseRepo) GetByID(_ context.Context, id uuid.UUID) (*pacase.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, pacase.ErrCaseNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCaseRepo) Claim(_ context.Context, id uuid.UUID, actor pacase.Actor) (*pacase.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, pacase.ErrCaseNotFound
	}
	if c.Status != pacase.StatusNew {
		return nil, pacase.ErrAlreadyClaimed
	}
	now := time.Now().UTC()
	c.Status = pacase.StatusInProgress
	c.AssignedTo = &actor.ID
	c.AssigneeName = actor.Name
	c.AssigneeRole = actor.Role
	c.AssignedAt = &now
	m.history[id] = append(m.history[id], &pacase.StatusChange{
		CaseID:     id,
		FromStatus: pacase.StatusNew,
		ToStatus:   pacase.StatusInProgress,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
	})
	cp := *c
	return &cp, nil
}

func (m *mockCaseRepo) UpdateStatus(_ context.Context, c *pacase.Case, change *pacase.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.store[c.ID]
	if !ok {
		return pacase.ErrCaseNotFound
	}
	if stored.Status != change.FromStatus {
		return pacase.ErrStaleCase
	}
	cp := *c
	m.store[c.ID] = &cp
	m.history[c.ID] = append(m.history[c.ID], change)
	return nil
}

func (m *mockCaseRepo) ListHistory(_ context.Context, caseID uuid.UUID) ([]*pacase.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*pacase.StatusChange{}, m.history[caseID]...), nil
}

func (m *mockCaseRepo) AddNote(_ context.Context, n *pacase.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	m.notes[n.CaseID] = append(m.notes[n.CaseID], n)
	return nil
}

func (m *mockCaseRepo) ListNotes(_ context.Context, caseID uuid.UUID) ([]*pacase.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*pacase.Note{}, m.notes[caseID]...), nil
}

func (m *mockCaseRepo) List(_ context.Context, q *pacase.ListCasesQuery) (*pacase.PagedCases, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*pacase.Case{}
	for _, c := range m.store {
		if q.Status != nil && c.Status != *q.Status {
			continue
		}
		out = append(out, c)
	}
	return &pacase.PagedCases{Cases: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize}, nil
}

func (m *mockCaseRepo) ExistsByMRN(_ context.Context, mrn string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.MRN == mrn {
			return true, nil
		}
	}
	return false, nil
}

type mockReviewRepo struct {
	mu      sync.Mutex
	bundles map[uuid.UUID]*review.CaseReview
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{bundles: make(map[uuid.UUID]*review.CaseReview)}
}

func (m *mockReviewRepo) CreateBundle(_ context.Context, caseID uuid.UUID, rv *review.CaseReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles[caseID] = rv
	return nil
}

func (m *mockReviewRepo) GetByCase(_ context.Context, caseID uuid.UUID) (*review.CaseReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.bundles[caseID]
	if !ok {
		return &review.CaseReview{
			Rules:           []*review.PayerRule{},
			Gaps:            []*review.PolicyGap{},
			Risks:           []*review.RiskFactor{},
			Recommendations: []*review.Recommendation{},
		}, nil
	}
	return rv, nil
}

func (m *mockReviewRepo) UpdateRuleStatus(_ context.Context, caseID, ruleID uuid.UUID, status review.RuleStatus, evidence string) (*review.PayerRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.bundles[caseID]
	if !ok {
		return nil, review.ErrItemNotFound
	}
	for _, r := range rv.Rules {
		if r.ID == ruleID {
			r.Status = status
			if evidence != "" {
				r.Evidence = evidence
			}
			return r, nil
		}
	}
	return nil, review.ErrItemNotFound
}

func (m *mockReviewRepo) UpdateRiskStatus(_ context.Context, caseID, riskID uuid.UUID, status review.RiskStatus) (*review.RiskFactor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.bundles[caseID]
	if !ok {
		return nil, review.ErrItemNotFound
	}
	for _, r := range rv.Risks {
		if r.ID == riskID {
			r.Status = status
			return r, nil
		}
	}
	return nil, review.ErrItemNotFound
}

func (m *mockReviewRepo) UpdateGapStatus(_ context.Context, caseID, gapID uuid.UUID, status review.GapStatus) (*review.PolicyGap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.bundles[caseID]
	if !ok {
		return nil, review.ErrItemNotFound
	}
	for _, g := range rv.Gaps {
		if g.ID == gapID {
			g.Status = status
			return g, nil
		}
	}
	return nil, review.ErrItemNotFound
}

func (m *mockReviewRepo) UpdateRecommendationStatus(_ context.Context, caseID, recID uuid.UUID, status review.RecommendationStatus) (*review.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.bundles[caseID]
	if !ok {
		return nil, review.ErrItemNotFound
	}
	for _, r := range rv.Recommendations {
		if r.ID == recID {
			r.Status = status
			return r, nil
		}
	}
	return nil, review.ErrItemNotFound
}

func (m *mockReviewRepo) UpdateAnalysis(_ context.Context, caseID uuid.UUID, confidence review.ConfidenceLevel, score int, summary string, gradedBy uuid.UUID) (*review.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, ok := m.bundles[caseID]
	if !ok {
		return nil, review.ErrItemNotFound
	}
	if rv.Analysis == nil {
		rv.Analysis = &review.Analysis{CaseID: caseID}
	}
	rv.Analysis.Confidence = confidence
	rv.Analysis.DenialRiskScore = score
	if summary != "" {
		rv.Analysis.Summary = summary
	}
	rv.Analysis.GradedBy = &gradedBy
	return rv.Analysis, nil
}

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (m *mockAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) List(_ context.Context, q *AuditQuery) ([]*domain.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.AuditLog{}
	for _, e := range m.entries {
		if q.CaseID != nil && (e.CaseID == nil || *e.CaseID != *q.CaseID) {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (m *mockAuditRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type caseFixture struct {
	svc       *CaseService
	caseRepo  *mockCaseRepo
	reviewRep *mockReviewRepo
	auditRepo *mockAuditRepo
	auditSvc  *AuditService
}

func newCaseFixture(t *testing.T) *caseFixture {
	t.Helper()
	caseRepo := newMockCaseRepo()
	reviewRepo := newMockReviewRepo()
	auditRepo := &mockAuditRepo{}
	auditSvc := NewAuditService(auditRepo, nil, zap.NewNop())
	return &caseFixture{
		svc:       NewCaseService(caseRepo, reviewRepo, auditSvc, nil, zap.NewNop()),
		caseRepo:  caseRepo,
		reviewRep: reviewRepo,
		auditRepo: auditRepo,
		auditSvc:  auditSvc,
	}
}

func seedCase(f *caseFixture, status pacase.Status) *pacase.Case {
	c := &pacase.Case{
		ID:          uuid.New(),
		PatientName: "Maria Alvarez",
		MRN:         "MRN-1042",
		PayerName:   "Acme Health",
		Status:      status,
		CreatedBy:   uuid.New(),
	}
	f.caseRepo.store[c.ID] = c
	return c
}

func caseManagerActor() pacase.Actor {
	return pacase.Actor{ID: uuid.New(), Name: "Dana Whitfield", Role: domain.RoleCaseManager}
}

func physicianActor() pacase.Actor {
	return pacase.Actor{ID: uuid.New(), Name: "Dr. Osei", Role: domain.RolePhysician}
}

func TestClaim(t *testing.T) {
	t.Run("claims a new case", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusNew)
		actor := caseManagerActor()

		claimed, err := f.svc.Claim(context.Background(), c.ID, actor, "10.0.0.1")
		require.NoError(t, err)

		assert.Equal(t, pacase.StatusInProgress, claimed.Status)
		require.NotNil(t, claimed.AssignedTo)
		assert.Equal(t, actor.ID, *claimed.AssignedTo)
		assert.Equal(t, actor.Name, claimed.AssigneeName)
		assert.NotNil(t, claimed.AssignedAt)

		history, err := f.caseRepo.ListHistory(context.Background(), c.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, claimed.Status, history[len(history)-1].ToStatus,
			"last history entry must match current status")
	})

	t.Run("claim on a non-new case is rejected and leaves state unchanged", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusInProgress)

		_, err := f.svc.Claim(context.Background(), c.ID, caseManagerActor(), "10.0.0.1")
		assert.ErrorIs(t, err, pacase.ErrAlreadyClaimed)

		stored, _ := f.caseRepo.GetByID(context.Background(), c.ID)
		assert.Equal(t, pacase.StatusInProgress, stored.Status)

		history, _ := f.caseRepo.ListHistory(context.Background(), c.ID)
		assert.Empty(t, history, "rejected claim must not append history")
	})

	t.Run("claim on an unknown case returns not found", func(t *testing.T) {
		f := newCaseFixture(t)
		_, err := f.svc.Claim(context.Background(), uuid.New(), caseManagerActor(), "10.0.0.1")
		assert.ErrorIs(t, err, pacase.ErrCaseNotFound)
	})

	t.Run("auditors cannot claim", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusNew)

		auditor := pacase.Actor{ID: uuid.New(), Name: "Sam Reyes", Role: domain.RoleAuditor}
		_, err := f.svc.Claim(context.Background(), c.ID, auditor, "10.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestTransition(t *testing.T) {
	t.Run("send to physician", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusInProgress)

		updated, err := f.svc.Transition(context.Background(), c.ID,
			&pacase.TransitionCommand{To: pacase.StatusNeedsPhysician, Notes: "needs clinical sign-off"},
			caseManagerActor(), "10.0.0.1")
		require.NoError(t, err)

		assert.Equal(t, pacase.StatusNeedsPhysician, updated.Status)
		history, _ := f.caseRepo.ListHistory(context.Background(), c.ID)
		require.Len(t, history, 1)
		assert.Equal(t, pacase.StatusInProgress, history[0].FromStatus)
		assert.Equal(t, pacase.StatusNeedsPhysician, history[0].ToStatus)
		assert.Equal(t, "needs clinical sign-off", history[0].Note)
	})

	t.Run("illegal edge is rejected without touching the case", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusInProgress)

		_, err := f.svc.Transition(context.Background(), c.ID,
			&pacase.TransitionCommand{To: pacase.StatusSubmitted},
			caseManagerActor(), "10.0.0.1")
		assert.ErrorIs(t, err, pacase.ErrIllegalTransition)

		stored, _ := f.caseRepo.GetByID(context.Background(), c.ID)
		assert.Equal(t, pacase.StatusInProgress, stored.Status)
	})

	t.Run("auditor is rejected", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusInProgress)

		auditor := pacase.Actor{ID: uuid.New(), Role: domain.RoleAuditor}
		_, err := f.svc.Transition(context.Background(), c.ID,
			&pacase.TransitionCommand{To: pacase.StatusReady}, auditor, "10.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestRecordPhysicianDecision(t *testing.T) {
	t.Run("approve moves case to ready with decision recorded", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusNeedsPhysician)
		actor := physicianActor()

		updated, err := f.svc.RecordPhysicianDecision(context.Background(), c.ID,
			pacase.DecisionApproved, "meets criteria", actor, "10.0.0.1")
		require.NoError(t, err)

		assert.Equal(t, pacase.StatusReady, updated.Status)
		require.NotNil(t, updated.PhysicianDecision)
		assert.Equal(t, pacase.DecisionApproved, updated.PhysicianDecision.Decision)
		assert.Equal(t, actor.ID, updated.PhysicianDecision.DecidedBy)

		stored, _ := f.caseRepo.GetByID(context.Background(), c.ID)
		assert.Equal(t, pacase.StatusReady, stored.Status)
	})

	t.Run("case manager cannot record a physician decision", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusNeedsPhysician)

		_, err := f.svc.RecordPhysicianDecision(context.Background(), c.ID,
			pacase.DecisionApproved, "", caseManagerActor(), "10.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("escalate keeps case in progress with the kind preserved", func(t *testing.T) {
		f := newCaseFixture(t)
		c := seedCase(f, pacase.StatusNeedsPhysician)

		updated, err := f.svc.RecordPhysicianDecision(context.Background(), c.ID,
			pacase.DecisionEscalated, "director review", physicianActor(), "10.0.0.1")
		require.NoError(t, err)

		assert.Equal(t, pacase.StatusInProgress, updated.Status)
		assert.Equal(t, pacase.DecisionEscalated, updated.PhysicianDecision.Decision)
	})
}

func TestSubmitAndAppeal(t *testing.T) {
	f := newCaseFixture(t)
	c := seedCase(f, pacase.StatusReady)
	actor := caseManagerActor()

	submitted, err := f.svc.SubmitPA(context.Background(), c.ID, "PA-2026-0815", actor, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, pacase.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.Submission)
	assert.Equal(t, "PA-2026-0815", submitted.Submission.Reference)
	assert.Equal(t, "Acme Health", submitted.Submission.PayerName)

	_, err = f.svc.Transition(context.Background(), c.ID,
		&pacase.TransitionCommand{To: pacase.StatusDenied, Notes: "medical necessity not established"},
		actor, "10.0.0.1")
	require.NoError(t, err)

	appealing, err := f.svc.StartAppeal(context.Background(), c.ID, "peer-reviewed literature attached", actor, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, pacase.StatusAppealing, appealing.Status)
	require.NotNil(t, appealing.Appeal)
	assert.Equal(t, "peer-reviewed literature attached", appealing.Appeal.Grounds)

	history, _ := f.caseRepo.ListHistory(context.Background(), c.ID)
	require.Len(t, history, 3)
	assert.Equal(t, appealing.Status, history[len(history)-1].ToStatus)
}

func TestIntakeCase(t *testing.T) {
	f := newCaseFixture(t)
	actor := caseManagerActor()

	cmd := &IntakeCommand{
		Case: pacase.CreateCaseCommand{
			PatientName:      "Jonas Park",
			MRN:              "MRN-2290",
			ChiefComplaint:   "chronic lower back pain",
			RequestedService: "lumbar MRI",
			PayerName:        "Acme Health",
		},
		Rules: []*review.PayerRule{
			{ID: uuid.New(), Description: "6 weeks conservative therapy documented", Status: review.RuleMissing},
		},
		Risks: []*review.RiskFactor{
			{ID: uuid.New(), Description: "prior denial for same CPT", Severity: review.SeverityHigh, Status: review.RiskOpen},
		},
		Analysis: &review.Analysis{Confidence: review.ConfidenceMedium, DenialRiskScore: 55},
	}

	created, err := f.svc.IntakeCase(context.Background(), cmd, actor, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, pacase.StatusNew, created.Status)
	assert.Nil(t, created.AssignedTo, "new cases start unassigned")

	detail, err := f.svc.GetCase(context.Background(), created.ID, actor, "10.0.0.1")
	require.NoError(t, err)
	assert.Len(t, detail.Review.Rules, 1)
	assert.False(t, detail.ReadyForPA)

	t.Run("duplicate MRN is rejected", func(t *testing.T) {
		_, err := f.svc.IntakeCase(context.Background(), cmd, actor, "10.0.0.1")
		assert.ErrorIs(t, err, pacase.ErrCaseAlreadyExists)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		bad := &IntakeCommand{Case: pacase.CreateCaseCommand{PatientName: " "}}
		_, err := f.svc.IntakeCase(context.Background(), bad, actor, "10.0.0.1")
		var validErr *ValidationError
		assert.ErrorAs(t, err, &validErr)
	})
}

func TestAuditTrailIsAppendOnly(t *testing.T) {
	f := newCaseFixture(t)
	c := seedCase(f, pacase.StatusNew)
	manager := caseManagerActor()
	physician := physicianActor()

	ctx := context.Background()

	_, err := f.svc.Claim(ctx, c.ID, manager, "10.0.0.1")
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, c.ID, &pacase.TransitionCommand{To: pacase.StatusNeedsPhysician}, manager, "10.0.0.1")
	require.NoError(t, err)
	_, err = f.svc.RecordPhysicianDecision(ctx, c.ID, pacase.DecisionApproved, "", physician, "10.0.0.2")
	require.NoError(t, err)
	_, err = f.svc.SubmitPA(ctx, c.ID, "PA-1", manager, "10.0.0.1")
	require.NoError(t, err)

	// Flush the async audit worker, then count.
	f.auditSvc.Shutdown()

	assert.Equal(t, 4, f.auditRepo.count(), "N mutations must produce exactly N audit entries")

	entries, _, err := f.auditRepo.List(ctx, &AuditQuery{CaseID: &c.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestGetCaseNotFound(t *testing.T) {
	f := newCaseFixture(t)
	_, err := f.svc.GetCase(context.Background(), uuid.New(), caseManagerActor(), "10.0.0.1")
	assert.ErrorIs(t, err, pacase.ErrCaseNotFound)
}

func TestNotes(t *testing.T) {
	f := newCaseFixture(t)
	c := seedCase(f, pacase.StatusInProgress)
	actor := caseManagerActor()

	_, err := f.svc.AddNote(context.Background(), c.ID, "payer portal confirms receipt", actor, "10.0.0.1")
	require.NoError(t, err)

	_, err = f.svc.AddNote(context.Background(), c.ID, "   ", actor, "10.0.0.1")
	var validErr *ValidationError
	assert.ErrorAs(t, err, &validErr)

	notes, err := f.svc.ListNotes(context.Background(), c.ID, actor)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "payer portal confirms receipt", notes[0].Body)
}
