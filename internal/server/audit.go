package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	auditActionStaffPINInit  = "staff.pin_init"
	auditActionMemberCreate  = "member.create"
	auditActionRosterImport  = "roster.import"
	auditActionProductCreate = "product.create"
	auditActionOrderCreate   = "order.create"
)

// recordAudit writes an audit entry. Failures are logged and never fail the
// request that triggered them.
func (s *Server) recordAudit(c *gin.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	ctx := c.Request.Context()
	if err := s.auditSvc.Record(ctx, entry); err != nil {
		logger.FromContext(ctx).Warn("audit record failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var req auditdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}
