package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/member/domain"
	"github.com/smallbiznis/frontdesk/internal/normalize"
	"github.com/smallbiznis/frontdesk/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const qrTokenBytes = 24

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Cfg     config.Config
	Email   email.Provider
	Matcher domain.Matcher `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	email   email.Provider
	matcher domain.Matcher
	baseURL string
	gymName string
}

func New(p Params) domain.Service {
	matcher := p.Matcher
	if matcher == nil {
		matcher = domain.AnyKeyMatcher{Priority: domain.DefaultPriority}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("member.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		email:   p.Email,
		matcher: matcher,
		baseURL: strings.TrimRight(p.Cfg.BaseURL, "/"),
		gymName: p.Cfg.Email.GymName,
	}
}

func (s *Service) ResolveOrCreate(ctx context.Context, identity domain.Identity) (snowflake.ID, error) {
	var id snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = s.ResolveOrCreateTx(ctx, tx, identity)
		return err
	})
	return id, err
}

func (s *Service) ResolveOrCreateTx(ctx context.Context, tx *gorm.DB, identity domain.Identity) (snowflake.ID, error) {
	name := normalize.Text(identity.Name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}
	status := identity.Status
	switch status {
	case "":
		status = domain.StatusActive
	case domain.StatusActive, domain.StatusInactive:
	default:
		return 0, domain.ErrInvalidStatus
	}

	probe := domain.NewProbe(identity.ExternalID, identity.Email, identity.Phone)
	now := s.clock.Now()

	candidates, err := s.repo.FindCandidates(ctx, tx, probe)
	if err != nil {
		return 0, err
	}
	if id, ok := s.matcher.Match(domain.NewIndex(candidates), probe); ok {
		existing := pick(candidates, id)
		existing.Name = name
		existing.EmailLower = domain.StringPtr(probe.Email)
		existing.PhoneE164 = domain.StringPtr(probe.Phone)
		existing.MembershipTier = domain.StringPtr(identity.Tier)
		existing.Status = status
		if existing.ExternalID == nil {
			existing.ExternalID = domain.StringPtr(probe.ExternalID)
		}
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, &existing); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	m := &domain.Member{
		ID:             s.genID.Generate(),
		ExternalID:     domain.StringPtr(probe.ExternalID),
		Name:           name,
		EmailLower:     domain.StringPtr(probe.Email),
		PhoneE164:      domain.StringPtr(probe.Phone),
		MembershipTier: domain.StringPtr(identity.Tier),
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, tx, m); err != nil {
		return 0, err
	}
	return m.ID, nil
}

func pick(members []domain.Member, id snowflake.ID) domain.Member {
	for _, m := range members {
		if m.ID == id {
			return m
		}
	}
	return domain.Member{}
}

func (s *Service) EnsureQRToken(ctx context.Context, id snowflake.ID) (string, error) {
	return s.EnsureQRTokenTx(ctx, s.db, id)
}

// EnsureQRTokenTx never replaces a token that is already stored.
func (s *Service) EnsureQRTokenTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (string, error) {
	m, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", domain.ErrNotFound
	}
	if token := domain.Deref(m.QRToken); token != "" {
		return token, nil
	}

	token, err := newQRToken()
	if err != nil {
		return "", err
	}
	stored, err := s.repo.SetQRTokenIfEmpty(ctx, tx, id, token, s.clock.Now())
	if err != nil {
		return "", err
	}
	if stored {
		return token, nil
	}

	// Lost a race with another writer; theirs is canonical.
	m, err = s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if m == nil || domain.Deref(m.QRToken) == "" {
		return "", domain.ErrNotFound
	}
	return *m.QRToken, nil
}

func newQRToken() (string, error) {
	buf := make([]byte, qrTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Member, error) {
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// FindActiveByID returns nil without error when the member is missing or inactive.
func (s *Service) FindActiveByID(ctx context.Context, id snowflake.ID) (*domain.Member, error) {
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil || m == nil || !m.Active() {
		return nil, err
	}
	return m, nil
}

func (s *Service) FindActiveByQRToken(ctx context.Context, token string) (*domain.Member, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return s.repo.FindActiveByQRToken(ctx, s.db, token)
}

func (s *Service) FindActiveByContact(ctx context.Context, rawEmail, rawPhone string) (*domain.Member, error) {
	if e, ok := normalize.Email(rawEmail); ok {
		m, err := s.repo.FindActiveByEmail(ctx, s.db, e)
		if err != nil || m != nil {
			return m, err
		}
	}
	if p, ok := normalize.Phone(rawPhone); ok {
		return s.repo.FindActiveByPhone(ctx, s.db, p)
	}
	return nil, nil
}

func (s *Service) FindByProcessorCustomerID(ctx context.Context, customerID string) (*domain.Member, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, nil
	}
	return s.repo.FindByProcessorCustomerID(ctx, s.db, customerID)
}

func (s *Service) LinkProcessorCustomer(ctx context.Context, id snowflake.ID, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil
	}
	return s.repo.SetProcessorCustomerID(ctx, s.db, id, customerID, s.clock.Now())
}

func (s *Service) Search(ctx context.Context, q string) ([]domain.Member, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.Member{}, nil
	}
	return s.repo.Search(ctx, s.db, q, domain.SearchLimit)
}

func (s *Service) Suggest(ctx context.Context, q string) ([]domain.Suggestion, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < domain.SuggestMinQ {
		return []domain.Suggestion{}, nil
	}
	return s.repo.SuggestByName(ctx, s.db, q, domain.SuggestLimit)
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Member, error) {
	return s.ListActiveTx(ctx, s.db)
}

func (s *Service) ListActiveTx(ctx context.Context, tx *gorm.DB) ([]domain.Member, error) {
	status := domain.StatusActive
	return s.repo.List(ctx, tx, &status)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Member, error) {
	return s.repo.List(ctx, s.db, nil)
}

func (s *Service) Deactivate(ctx context.Context, ids []snowflake.ID) (int64, error) {
	return s.DeactivateTx(ctx, s.db, ids)
}

func (s *Service) DeactivateTx(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) (int64, error) {
	return s.repo.SetStatus(ctx, tx, ids, domain.StatusInactive, s.clock.Now())
}

func (s *Service) ResendQR(ctx context.Context, req domain.ResendQRRequest) (domain.ResendQRResult, error) {
	_, hasEmail := normalize.Email(req.Email)
	_, hasPhone := normalize.Phone(req.Phone)
	if !hasEmail && !hasPhone {
		return domain.ResendQRResult{}, domain.ErrInvalidContact
	}

	m, err := s.FindActiveByContact(ctx, req.Email, req.Phone)
	if err != nil {
		return domain.ResendQRResult{}, err
	}
	if m == nil {
		return domain.ResendQRResult{}, domain.ErrNotFound
	}

	token, err := s.EnsureQRToken(ctx, m.ID)
	if err != nil {
		return domain.ResendQRResult{}, err
	}

	result := domain.ResendQRResult{MemberID: m.ID}
	to := domain.Deref(m.EmailLower)
	if to == "" {
		result.NoAddress = true
		return result, nil
	}
	result.Emailed = s.SendCredential(ctx, m.Name, to, token)
	return result, nil
}

// SendCredential mails the QR link. Delivery failures are logged and reported
// as false, never returned.
func (s *Service) SendCredential(ctx context.Context, name, to, token string) bool {
	err := s.email.SendTemplate(ctx, []string{to}, email.TemplateMemberCredential, email.CredentialData{
		GymName:    s.gymName,
		MemberName: name,
		Link:       s.QRLink(token),
		Token:      token,
	})
	if err != nil {
		s.log.Warn("credential email failed", zap.Error(err))
		return false
	}
	return true
}

// QRLink is the public page that renders a member's check-in code.
func (s *Service) QRLink(token string) string {
	return s.baseURL + "/member/qr?token=" + url.QueryEscape(token)
}

var _ domain.Service = (*Service)(nil)
