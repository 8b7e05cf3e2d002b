package signup

import (
	"context"
	"strings"

	"github.com/smallbiznis/frontdesk/internal/config"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	"github.com/smallbiznis/frontdesk/internal/normalize"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/signup/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MemberProvisioner turns a completed signup checkout into an active member
// with a check-in credential.
type MemberProvisioner struct {
	db      *gorm.DB
	log     *zap.Logger
	members memberdomain.Service
	tier    string
}

func NewMemberProvisioner(db *gorm.DB, log *zap.Logger, members memberdomain.Service, cfg config.Config) *MemberProvisioner {
	return &MemberProvisioner{
		db:      db,
		log:     log.Named("signup.provisioner"),
		members: members,
		tier:    strings.TrimSpace(cfg.Signup.MembershipTier),
	}
}

func (p *MemberProvisioner) Provision(ctx context.Context, event paymentdomain.Event) (*domain.Provisioned, error) {
	existing, err := p.members.FindByProcessorCustomerID(ctx, event.CustomerID)
	if err != nil {
		return nil, err
	}

	identity := memberdomain.Identity{
		Name:  firstNonEmpty(event.CustomerName, event.Meta("name")),
		Email: firstNonEmpty(event.CustomerEmail, event.Meta("email")),
		Phone: firstNonEmpty(event.CustomerPhone, event.Meta("phone")),
		Tier:  p.tier,
	}
	if existing != nil {
		identity.ExternalID = memberdomain.Deref(existing.ExternalID)
		identity.Name = firstNonEmpty(identity.Name, existing.Name)
		identity.Email = firstNonEmpty(identity.Email, memberdomain.Deref(existing.EmailLower))
		identity.Phone = firstNonEmpty(identity.Phone, memberdomain.Deref(existing.PhoneE164))
		if identity.Tier == "" {
			identity.Tier = memberdomain.Deref(existing.MembershipTier)
		}
	}
	if normalize.EmailOrEmpty(identity.Email) == "" && normalize.PhoneOrEmpty(identity.Phone) == "" && identity.ExternalID == "" {
		return nil, domain.ErrNoIdentity
	}
	if normalize.Text(identity.Name) == "" {
		identity.Name = firstNonEmpty(normalize.EmailOrEmpty(identity.Email), normalize.PhoneOrEmpty(identity.Phone))
	}

	out := &domain.Provisioned{Name: normalize.Text(identity.Name), Email: normalize.EmailOrEmpty(identity.Email)}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := p.members.ResolveOrCreateTx(ctx, tx, identity)
		if err != nil {
			return err
		}
		out.MemberID = id
		out.QRToken, err = p.members.EnsureQRTokenTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := p.members.LinkProcessorCustomer(ctx, out.MemberID, event.CustomerID); err != nil {
		return nil, err
	}
	if out.Email != "" {
		out.CredentialSent = p.members.SendCredential(ctx, out.Name, out.Email, out.QRToken)
	}

	p.log.Info("member provisioned from signup",
		zap.String("member_id", out.MemberID.String()),
		zap.String("customer_id", event.CustomerID),
		zap.Bool("credential_sent", out.CredentialSent),
	)
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
