package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/priorauth/internal/domain/pacase"
	"github.com/careloop/priorauth/internal/domain/review"
	"github.com/careloop/priorauth/internal/service"
)

type CaseHandler struct {
	caseSvc *service.CaseService
}

func NewCaseHandler(caseSvc *service.CaseService) *CaseHandler {
	return &CaseHandler{caseSvc: caseSvc}
}

type intakeRuleRequest struct {
	PolicyRef   string `json:"policy_ref"`
	Description string `json:"description" binding:"required"`
	Status      string `json:"status"`
}

type intakeGapRequest struct {
	Description string `json:"description" binding:"required"`
}

type intakeRiskRequest struct {
	Description string `json:"description" binding:"required"`
	Severity    string `json:"severity" binding:"required"`
}

type intakeRecommendationRequest struct {
	Description string `json:"description" binding:"required"`
}

type intakeAnalysisRequest struct {
	Summary         string `json:"summary"`
	Confidence      string `json:"confidence" binding:"required"`
	DenialRiskScore int    `json:"denial_risk_score"`
}

type intakeCaseRequest struct {
	PatientName      string                        `json:"patient_name" binding:"required"`
	MRN              string                        `json:"mrn" binding:"required"`
	ChiefComplaint   string                        `json:"chief_complaint"`
	Diagnoses        []string                      `json:"diagnoses"`
	ProblemList      []string                      `json:"problem_list"`
	RequestedService string                        `json:"requested_service"`
	PayerName        string                        `json:"payer_name"`
	PayerRules       []intakeRuleRequest           `json:"payer_rules"`
	PolicyGaps       []intakeGapRequest            `json:"policy_gaps"`
	RiskFactors      []intakeRiskRequest           `json:"risk_factors"`
	Recommendations  []intakeRecommendationRequest `json:"recommendations"`
	Analysis         *intakeAnalysisRequest        `json:"analysis"`
}

func (h *CaseHandler) Intake(c *gin.Context) {
	var req intakeCaseRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &service.IntakeCommand{
		Case: pacase.CreateCaseCommand{
			PatientName:      req.PatientName,
			MRN:              req.MRN,
			ChiefComplaint:   req.ChiefComplaint,
			Diagnoses:        req.Diagnoses,
			ProblemList:      req.ProblemList,
			RequestedService: req.RequestedService,
			PayerName:        req.PayerName,
		},
	}

	for _, r := range req.PayerRules {
		status := review.RuleMissing
		if r.Status != "" {
			status = review.RuleStatus(r.Status)
		}
		cmd.Rules = append(cmd.Rules, &review.PayerRule{
			PolicyRef:   r.PolicyRef,
			Description: r.Description,
			Status:      status,
		})
	}
	for _, g := range req.PolicyGaps {
		cmd.Gaps = append(cmd.Gaps, &review.PolicyGap{
			Description: g.Description,
			Status:      review.GapOpen,
		})
	}
	for _, r := range req.RiskFactors {
		cmd.Risks = append(cmd.Risks, &review.RiskFactor{
			Description: r.Description,
			Severity:    review.RiskSeverity(r.Severity),
			Status:      review.RiskOpen,
		})
	}
	for _, rec := range req.Recommendations {
		cmd.Recommendations = append(cmd.Recommendations, &review.Recommendation{
			Description: rec.Description,
			Status:      review.RecPending,
		})
	}
	if req.Analysis != nil {
		cmd.Analysis = &review.Analysis{
			Summary:         req.Analysis.Summary,
			Confidence:      review.ConfidenceLevel(req.Analysis.Confidence),
			DenialRiskScore: req.Analysis.DenialRiskScore,
		}
	}

	created, err := h.caseSvc.IntakeCase(c.Request.Context(), cmd, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, created)
}

func (h *CaseHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	detail, err := h.caseSvc.GetCase(c.Request.Context(), id, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, detail)
}

func (h *CaseHandler) List(c *gin.Context) {
	q := &pacase.ListCasesQuery{
		Search:        c.Query("search"),
		DirectorQueue: c.Query("queue") == "director",
		Page:          parseQueryInt(c, "page", 1),
		PageSize:      parseQueryInt(c, "page_size", 20),
		SortBy:        c.Query("sort_by"),
		SortOrder:     c.Query("sort_order"),
	}

	if raw := c.Query("status"); raw != "" {
		status := pacase.Status(raw)
		if !status.IsValid() {
			respondServiceError(c, pacase.ErrInvalidStatus)
			return
		}
		q.Status = &status
	}
	if raw := c.Query("assigned_to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, 400, "invalid assigned_to: must be a valid UUID")
			return
		}
		q.AssignedTo = &id
	}

	paged, err := h.caseSvc.ListCases(c.Request.Context(), q, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, paged)
}

func (h *CaseHandler) Claim(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	claimed, err := h.caseSvc.Claim(c.Request.Context(), id, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, claimed)
}

type transitionRequest struct {
	ToStatus string `json:"to_status" binding:"required"`
	Notes    string `json:"notes"`
}

func (h *CaseHandler) Transition(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &pacase.TransitionCommand{
		To:    pacase.Status(req.ToStatus),
		Notes: req.Notes,
	}
	updated, err := h.caseSvc.Transition(c.Request.Context(), id, cmd, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, updated)
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

func (h *CaseHandler) PhysicianDecision(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req decisionRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.caseSvc.RecordPhysicianDecision(
		c.Request.Context(), id, pacase.DecisionKind(req.Decision), req.Notes, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, updated)
}

type submitRequest struct {
	Reference string `json:"reference"`
}

func (h *CaseHandler) Submit(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.caseSvc.SubmitPA(c.Request.Context(), id, req.Reference, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, updated)
}

type appealRequest struct {
	Grounds string `json:"grounds"`
}

func (h *CaseHandler) Appeal(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req appealRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.caseSvc.StartAppeal(c.Request.Context(), id, req.Grounds, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, updated)
}

func (h *CaseHandler) History(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	history, err := h.caseSvc.GetHistory(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, history)
}

type noteRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *CaseHandler) AddNote(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req noteRequest
	if !bindJSON(c, &req) {
		return
	}

	note, err := h.caseSvc.AddNote(c.Request.Context(), id, req.Body, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, note)
}

func (h *CaseHandler) ListNotes(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	notes, err := h.caseSvc.ListNotes(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, notes)
}
