package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	staffdomain "github.com/smallbiznis/frontdesk/internal/staff/domain"
)

const (
	defaultInitPIN  = "1234"
	defaultInitName = "Admin"
)

// InitStaffPIN bootstraps or rotates a staff PIN. It only exists while
// ENABLE_INIT_PIN=1.
func (s *Server) InitStaffPIN(c *gin.Context) {
	if !s.cfg.Staff.EnableInitPIN {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Init disabled"})
		return
	}

	fields, err := kioskFields(c, "name", "pin", "role")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	name := fields["name"]
	if name == "" {
		name = defaultInitName
	}
	pin := fields["pin"]
	if pin == "" {
		pin = defaultInitPIN
	}

	created, err := s.staffSvc.CreateOrRotate(c.Request.Context(), name, pin,
		staffdomain.Role(strings.ToLower(fields["role"])))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		Action:     auditActionStaffPINInit,
		TargetType: "staff",
		TargetID:   created.ID.String(),
		Metadata:   map[string]any{"name": created.Name, "role": string(created.Role)},
	})

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": created})
}
