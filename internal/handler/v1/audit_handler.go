package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/internal/service"
)

type AuditHandler struct {
	auditSvc *service.AuditService
}

func NewAuditHandler(auditSvc *service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

type auditPage struct {
	Entries    []*domain.AuditLog `json:"entries"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

// ListGlobal serves the audit dashboard. Route is restricted to auditors and
// admins via RequireRoles.
func (h *AuditHandler) ListGlobal(c *gin.Context) {
	q := &service.AuditQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 50),
	}

	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, 400, "invalid user_id: must be a valid UUID")
			return
		}
		q.UserID = &id
	}
	if raw := c.Query("action"); raw != "" {
		action := domain.AuditAction(raw)
		q.Action = &action
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, 400, "invalid from: must be RFC3339")
			return
		}
		q.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, 400, "invalid to: must be RFC3339")
			return
		}
		q.To = &t
	}

	entries, total, err := h.auditSvc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, auditPage{Entries: entries, TotalCount: total, Page: q.Page, PageSize: q.PageSize})
}

// ListForCase returns the per-case audit trail. Any authenticated role may
// read it; the working roles need it to understand how a case got here.
func (h *AuditHandler) ListForCase(c *gin.Context) {
	caseID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	q := &service.AuditQuery{
		CaseID:   &caseID,
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 50),
	}

	entries, total, err := h.auditSvc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, auditPage{Entries: entries, TotalCount: total, Page: q.Page, PageSize: q.PageSize})
}
