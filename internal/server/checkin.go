package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	checkindomain "github.com/smallbiznis/frontdesk/internal/checkin/domain"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
)

func (s *Server) CheckIn(c *gin.Context) {
	fields := lenientKioskFields(c, "member_id", "qr_token", "email", "phone")

	result, err := s.checkinSvc.Record(c.Request.Context(), checkindomain.Request{
		MemberID: fields["member_id"],
		QRToken:  fields["qr_token"],
		Email:    fields["email"],
		Phone:    fields["phone"],
		DeviceID: strings.TrimSpace(c.GetHeader(HeaderDeviceID)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("checkin_outcome", string(result.Outcome))
	switch result.Outcome {
	case checkindomain.OutcomeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": checkindomain.MessageNotFound})
	case checkindomain.OutcomeSuppressed:
		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"message":     checkindomain.MessageSuppressed,
			"member_name": result.MemberName,
		})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "member_name": result.MemberName})
	}
}

func (s *Server) KioskSuggest(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len([]rune(q)) < memberdomain.SuggestMinQ {
		c.JSON(http.StatusOK, []memberdomain.Suggestion{})
		return
	}

	suggestions, err := s.memberSvc.Suggest(c.Request.Context(), q)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if suggestions == nil {
		suggestions = []memberdomain.Suggestion{}
	}
	c.JSON(http.StatusOK, suggestions)
}

func (s *Server) RecentCheckins(c *gin.Context) {
	limit := checkindomain.RecentLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	rows, err := s.checkinSvc.Recent(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rows == nil {
		rows = []checkindomain.RecentCheckIn{}
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}
