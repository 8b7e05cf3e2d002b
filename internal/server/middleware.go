package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	HeaderStaffPIN = "X-Staff-Pin"
	HeaderDeviceID = "X-Device-Id"

	contextActorKey = "staff_actor"
)

// StaffRequired resolves the X-Staff-Pin header to a staff actor.
func (s *Server) StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		pin := strings.TrimSpace(c.GetHeader(HeaderStaffPIN))
		if pin == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		operator, err := s.staffSvc.Authenticate(c.Request.Context(), pin)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextActorKey, authorization.Actor{
			ID:   operator.ID,
			Role: string(operator.Role),
		})
		ctx := obscontext.WithActor(c.Request.Context(), obscontext.ActorStaff, operator.ID.String())
		ctx = obscontext.WithClient(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (authorization.Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return authorization.Actor{}, false
	}
	actor, ok := value.(authorization.Actor)
	return actor, ok && actor.ID != 0
}

// KioskThrottle spends a token from the device bucket. Redis failures let
// the request through.
func (s *Server) KioskThrottle() gin.HandlerFunc {
	return func(c *gin.Context) {
		device := s.deviceID(c)
		ctx := obscontext.WithDeviceID(c.Request.Context(), device)
		ctx = obscontext.WithActor(ctx, obscontext.ActorKiosk, device)
		c.Request = c.Request.WithContext(ctx)

		if !s.kioskGuard.Enabled() {
			c.Next()
			return
		}

		result, err := s.kioskGuard.AllowDevice(ctx, device)
		if err != nil {
			logger.FromContext(ctx).Warn("kiosk rate limit check failed",
				zap.String("device_id", device),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if result.Allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"ok":    false,
			"error": "Too many requests",
		})
	}
}

func (s *Server) deviceID(c *gin.Context) string {
	if device := strings.TrimSpace(c.GetHeader(HeaderDeviceID)); device != "" {
		return device
	}
	return s.cfg.Checkin.DefaultDeviceID
}
