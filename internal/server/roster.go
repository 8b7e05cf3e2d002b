package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/internal/roster/csvmap"
	rosterdomain "github.com/smallbiznis/frontdesk/internal/roster/domain"
	"go.uber.org/zap"
)

const maxRosterUpload = 10 << 20

var errNoUpload = errors.New("no_file_uploaded")

func (s *Server) ImportPreview(c *gin.Context) {
	rows, err := s.readRoster(c)
	if err != nil {
		rosterFailure(c, err)
		return
	}

	plan, err := s.rosterSvc.Preview(c.Request.Context(), rows)
	if err != nil {
		rosterFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"counts":  plan.Counts,
		"samples": plan.Samples,
	})
}

func (s *Server) UploadCSV(c *gin.Context) {
	rows, err := s.readRoster(c)
	if err != nil {
		rosterFailure(c, err)
		return
	}

	opts := rosterdomain.ApplyOptions{
		Commit:            truthyQuery(c, "commit", true),
		DeactivateMissing: truthyQuery(c, "deactivate_missing", false),
	}
	result, err := s.rosterSvc.Apply(c.Request.Context(), rows, opts)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("roster apply failed", zap.Error(err))
		rosterFailure(c, err)
		return
	}

	if result.Committed {
		s.recordAudit(c, auditdomain.Entry{
			Action:     auditActionRosterImport,
			TargetType: "roster",
			Metadata: map[string]any{
				"imported":           result.Imported,
				"activated":          result.Activated,
				"deactivated":        result.Deactivated,
				"deactivate_missing": result.DeactivateMissing,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                 true,
		"imported":           result.Imported,
		"activated":          result.Activated,
		"deactivated":        result.Deactivated,
		"deactivate_missing": result.DeactivateMissing,
		"committed":          result.Committed,
	})
}

func (s *Server) readRoster(c *gin.Context) ([]rosterdomain.Row, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRosterUpload)
	header, err := c.FormFile("file")
	if err != nil {
		return nil, errNoUpload
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return csvmap.Parse(file)
}

// rosterFailure reports import errors verbatim so staff can fix the file.
func rosterFailure(c *gin.Context, err error) {
	message := err.Error()
	if errors.Is(err, errNoUpload) {
		message = "No file uploaded"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": message})
}

func truthyQuery(c *gin.Context, key string, def bool) bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
