package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// StripeWebhook acknowledges verified deliveries. Handler failures answer
// 500 so the processor redelivers.
func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx, cid := correlation.Ensure(c.Request.Context(), c.GetHeader(correlation.Header))
	c.Header(correlation.Header, cid)
	ctx = obscontext.WithActor(ctx, obscontext.ActorWebhook, "stripe")
	c.Request = c.Request.WithContext(ctx)

	result, err := s.webhookSvc.Ingest(ctx, payload, c.Request.Header)
	if err != nil {
		logger.FromContext(ctx).Warn("stripe webhook rejected",
			zap.String("event_id", result.EventID),
			zap.String("event_type", result.Type),
			zap.Error(err),
		)
		s.httpMetrics.RecordWebhookFailure(result.Type, err)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "data": result})
}
