package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/normalize"
	"github.com/smallbiznis/frontdesk/internal/staff/domain"
	"github.com/smallbiznis/frontdesk/internal/staff/pin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("staff.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) CreateOrRotate(ctx context.Context, name, rawPIN string, role domain.Role) (*domain.Staff, error) {
	name = normalize.Text(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	rawPIN = strings.TrimSpace(rawPIN)
	if len(rawPIN) < domain.MinPINLength {
		return nil, domain.ErrInvalidPIN
	}
	if role == "" {
		role = domain.RoleAdmin
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	hash, err := pin.Hash(rawPIN)
	if err != nil {
		return nil, err
	}
	staff := &domain.Staff{
		ID:        s.genID.Generate(),
		Name:      name,
		PinHash:   hash,
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, staff); err != nil {
		return nil, err
	}
	s.log.Info("staff pin rotated", zap.String("name", name), zap.String("role", string(role)))
	return staff, nil
}

func (s *Service) Verify(ctx context.Context, rawPIN string) bool {
	staff, err := s.Authenticate(ctx, rawPIN)
	return err == nil && staff != nil
}

func (s *Service) Authenticate(ctx context.Context, rawPIN string) (*domain.Staff, error) {
	rawPIN = strings.TrimSpace(rawPIN)
	if rawPIN == "" {
		return nil, domain.ErrUnauthorized
	}
	active, err := s.repo.ActivePerRole(ctx, s.db)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if pin.Verify(rawPIN, active[i].PinHash) {
			return &active[i], nil
		}
	}
	return nil, domain.ErrUnauthorized
}
