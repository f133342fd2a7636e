package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/careloop/priorauth/internal/domain/review"
	"github.com/careloop/priorauth/internal/service"
)

type ReviewHandler struct {
	reviewSvc *service.ReviewService
}

func NewReviewHandler(reviewSvc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

type ruleStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Evidence string `json:"evidence"`
}

func (h *ReviewHandler) UpdateRule(c *gin.Context) {
	caseID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	ruleID, ok := parseUUID(c, "ruleID")
	if !ok {
		return
	}

	var req ruleStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	update, err := h.reviewSvc.UpdateRuleStatus(
		c.Request.Context(), caseID, ruleID, review.RuleStatus(req.Status), req.Evidence, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, update)
}

type itemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ReviewHandler) UpdateRisk(c *gin.Context) {
	caseID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	riskID, ok := parseUUID(c, "riskID")
	if !ok {
		return
	}

	var req itemStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	update, err := h.reviewSvc.UpdateRiskStatus(
		c.Request.Context(), caseID, riskID, review.RiskStatus(req.Status), actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, update)
}

func (h *ReviewHandler) UpdateGap(c *gin.Context) {
	caseID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	gapID, ok := parseUUID(c, "gapID")
	if !ok {
		return
	}

	var req itemStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	update, err := h.reviewSvc.UpdateGapStatus(
		c.Request.Context(), caseID, gapID, review.GapStatus(req.Status), actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, update)
}

func (h *ReviewHandler) UpdateRecommendation(c *gin.Context) {
	caseID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	recID, ok := parseUUID(c, "recID")
	if !ok {
		return
	}

	var req itemStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	update, err := h.reviewSvc.UpdateRecommendationStatus(
		c.Request.Context(), caseID, recID, review.RecommendationStatus(req.Status), actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, update)
}

type regradeRequest struct {
	Confidence      string `json:"confidence" binding:"required"`
	DenialRiskScore int    `json:"denial_risk_score"`
	Summary         string `json:"summary"`
}

func (h *ReviewHandler) RegradeAnalysis(c *gin.Context) {
	caseID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req regradeRequest
	if !bindJSON(c, &req) {
		return
	}

	update, err := h.reviewSvc.RegradeAnalysis(
		c.Request.Context(), caseID, review.ConfidenceLevel(req.Confidence), req.DenialRiskScore, req.Summary, actorFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, update)
}
