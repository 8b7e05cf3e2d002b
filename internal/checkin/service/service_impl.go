package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/checkin/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"github.com/smallbiznis/frontdesk/internal/ratelimit"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Members  memberdomain.Service
	Clock    clock.Clock
	Cfg      config.Config
	Settings *config.CheckinSettingsHolder
	Guard    *ratelimit.KioskGuard `optional:"true"`
	Metrics  *metrics.Metrics      `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	members    memberdomain.Service
	clock      clock.Clock
	settings   *config.CheckinSettingsHolder
	guard      *ratelimit.KioskGuard
	metrics    *metrics.Metrics
	locationID int64
}

func New(p Params) domain.Service {
	locationID := p.Cfg.Checkin.LocationID
	if locationID <= 0 {
		locationID = 1
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("checkin.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		members:    p.Members,
		clock:      p.Clock,
		settings:   p.Settings,
		guard:      p.Guard,
		metrics:    p.Metrics,
		locationID: locationID,
	}
}

func (s *Service) Record(ctx context.Context, req domain.Request) (domain.Result, error) {
	member, method, err := s.resolveMember(ctx, req)
	if err != nil {
		return domain.Result{}, err
	}
	if member == nil {
		s.metrics.RecordCheckin(ctx, string(domain.OutcomeNotFound), string(method))
		return domain.Result{Outcome: domain.OutcomeNotFound, Message: domain.MessageNotFound}, nil
	}

	settings := s.settings.Get()
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = settings.DefaultDeviceID
	}

	lockKey := member.ID.String()
	lease, err := s.guard.LockMember(ctx, lockKey)
	switch {
	case errors.Is(err, ratelimit.ErrLockHeld):
		return s.suppressed(ctx, member, method), nil
	case err != nil:
		s.log.Warn("check-in lock unavailable, relying on window bucket",
			zap.String("member_id", lockKey),
			zap.Error(err),
		)
	case lease != nil:
		defer func() {
			if err := s.guard.UnlockMember(context.WithoutCancel(ctx), lease); err != nil {
				s.log.Warn("release check-in lock", zap.String("member_id", lockKey), zap.Error(err))
			}
		}()
	}

	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	window := settings.DupWindow()

	latest, err := s.repo.LatestForMember(ctx, s.db, member.ID)
	if err != nil {
		return domain.Result{}, err
	}
	if latest != nil && window > 0 && now.Sub(latest.CheckedInAt.UTC()) < window {
		return s.suppressed(ctx, member, method), nil
	}

	row := &domain.CheckIn{
		ID:             s.genID.Generate(),
		MemberID:       member.ID,
		LocationID:     s.locationID,
		CheckedInAt:    now,
		Method:         method,
		SourceDeviceID: deviceID,
		Status:         domain.StatusOK,
		WindowBucket:   domain.Bucket(now, window),
	}
	if err := s.repo.Insert(ctx, s.db, row); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return s.suppressed(ctx, member, method), nil
		}
		return domain.Result{}, err
	}

	s.metrics.RecordCheckin(ctx, string(domain.OutcomeAccepted), string(method))
	s.log.Info("check-in accepted",
		zap.String("member_id", member.ID.String()),
		zap.String("method", string(method)),
		zap.String("device_id", deviceID),
	)
	return domain.Result{
		Outcome:    domain.OutcomeAccepted,
		MemberID:   member.ID,
		MemberName: member.Name,
		CheckIn:    row,
	}, nil
}

// resolveMember walks the selectors in order; the first one present decides.
func (s *Service) resolveMember(ctx context.Context, req domain.Request) (*memberdomain.Member, domain.Method, error) {
	if raw := strings.TrimSpace(req.MemberID); raw != "" && isDigits(raw) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, domain.MethodManual, nil
		}
		m, err := s.members.FindActiveByID(ctx, snowflake.ID(id))
		return m, domain.MethodManual, err
	}
	if token := strings.TrimSpace(req.QRToken); token != "" {
		m, err := s.members.FindActiveByQRToken(ctx, token)
		return m, domain.MethodQR, err
	}
	if strings.TrimSpace(req.Email) == "" && strings.TrimSpace(req.Phone) == "" {
		return nil, domain.MethodManual, nil
	}
	m, err := s.members.FindActiveByContact(ctx, req.Email, req.Phone)
	return m, domain.MethodManual, err
}

func (s *Service) suppressed(ctx context.Context, m *memberdomain.Member, method domain.Method) domain.Result {
	s.metrics.RecordCheckin(ctx, string(domain.OutcomeSuppressed), string(method))
	return domain.Result{
		Outcome:    domain.OutcomeSuppressed,
		MemberID:   m.ID,
		MemberName: m.Name,
		Message:    domain.MessageSuppressed,
	}
}

func (s *Service) Recent(ctx context.Context, limit int) ([]domain.RecentCheckIn, error) {
	if limit < 0 {
		return nil, domain.ErrInvalidLimit
	}
	if limit == 0 || limit > domain.RecentLimit {
		limit = domain.RecentLimit
	}
	return s.repo.Recent(ctx, s.db, limit)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
