package server

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	checkindomain "github.com/smallbiznis/frontdesk/internal/checkin/domain"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	"github.com/smallbiznis/frontdesk/internal/providers/qr"
)

const maxQRSize = 1024

const memberQRTemplate = "member_qr.html"

var memberQRPage = template.Must(template.New(memberQRTemplate).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.GymName}} check-in code</title>
</head>
<body style="font-family:system-ui,sans-serif;text-align:center;padding:24px">
<h1>{{.GymName}}</h1>
<p>Show this code at the front desk kiosk.</p>
<img src="/member/qr.png?token={{.Token}}&size=320" width="320" height="320" alt="Check-in QR code">
<p style="color:#666">Token: <code>{{.Token}}</code></p>
</body>
</html>
`))

type createMemberRequest struct {
	ExternalID     string `json:"external_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	MembershipTier string `json:"membership_tier"`
	Status         string `json:"status"`
}

type memberResponse struct {
	memberdomain.Member
	QRURL string `json:"qr_url,omitempty"`
}

func (s *Server) SearchMembers(c *gin.Context) {
	members, err := s.memberSvc.Search(c.Request.Context(), strings.TrimSpace(c.Query("q")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if members == nil {
		members = []memberdomain.Member{}
	}
	c.JSON(http.StatusOK, members)
}

// CreateMember runs the identity resolver, so posting a known contact
// updates that member instead of creating a duplicate.
func (s *Server) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	id, err := s.memberSvc.ResolveOrCreate(ctx, memberdomain.Identity{
		ExternalID: strings.TrimSpace(req.ExternalID),
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		Phone:      req.Phone,
		Tier:       strings.TrimSpace(req.MembershipTier),
		Status:     memberdomain.Status(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	token, err := s.memberSvc.EnsureQRToken(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	member, err := s.memberSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		Action:     auditActionMemberCreate,
		TargetType: "member",
		TargetID:   id.String(),
		Metadata:   map[string]any{"name": member.Name},
	})

	c.JSON(http.StatusOK, gin.H{"data": memberResponse{
		Member: *member,
		QRURL:  s.memberSvc.QRLink(token),
	}})
}

func (s *Server) ResendQR(c *gin.Context) {
	fields := lenientKioskFields(c, "email", "phone")

	result, err := s.memberSvc.ResendQR(c.Request.Context(), memberdomain.ResendQRRequest{
		Email: fields["email"],
		Phone: fields["phone"],
	})
	switch {
	case errors.Is(err, memberdomain.ErrInvalidContact):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Email or phone required"})
		return
	case errors.Is(err, memberdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": checkindomain.MessageNotFound})
		return
	case err != nil:
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": result.Emailed || result.NoAddress})
}

// MemberQRPage is the page the credential link opens; it embeds the PNG.
func (s *Server) MemberQRPage(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.String(http.StatusBadRequest, "Missing token")
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.HTML(http.StatusOK, memberQRTemplate, gin.H{
		"GymName": s.cfg.Email.GymName,
		"Token":   token,
	})
}

func (s *Server) MemberQRCode(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.String(http.StatusBadRequest, "Missing token")
		return
	}

	size := qr.DefaultSize
	if raw := strings.TrimSpace(c.Query("size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxQRSize {
			AbortWithError(c, newValidationError("size", "invalid_size", "invalid size"))
			return
		}
		size = parsed
	}

	img, err := qr.PNG(token, size)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", img)
}
