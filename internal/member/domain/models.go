package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ParseStatus maps free text onto a member status.
// "active", "true", "1" and "yes" (any case) are active; anything else is inactive.
func ParseStatus(raw string) Status {
	switch normalizeStatusText(raw) {
	case "active", "true", "1", "yes":
		return StatusActive
	default:
		return StatusInactive
	}
}

type Member struct {
	ID                  snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ExternalID          *string      `gorm:"column:external_id;size:128;uniqueIndex:ux_members_external_id" json:"external_id,omitempty"`
	Name                string       `gorm:"size:255;not null" json:"name"`
	EmailLower          *string      `gorm:"column:email_lower;size:320;index:ix_members_email_lower" json:"email,omitempty"`
	PhoneE164           *string      `gorm:"column:phone_e164;size:32;index:ix_members_phone_e164" json:"phone,omitempty"`
	MembershipTier      *string      `gorm:"column:membership_tier;size:128" json:"membership_tier,omitempty"`
	Status              Status       `gorm:"size:16;not null;default:active;index:ix_members_status" json:"status"`
	QRToken             *string      `gorm:"column:qr_token;size:64;uniqueIndex:ux_members_qr_token" json:"-"`
	ProcessorCustomerID *string      `gorm:"column:processor_customer_id;size:128;index:ix_members_processor_customer_id" json:"processor_customer_id,omitempty"`
	CreatedAt           time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null" json:"updated_at"`
}

func (Member) TableName() string { return "members" }

func (m Member) Active() bool { return m.Status == StatusActive }

// Key is the member's own reconciliation key: external id, else email, else phone.
func (m Member) Key() string {
	for _, v := range []*string{m.ExternalID, m.EmailLower, m.PhoneE164} {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

// Identity is the candidate identity handed to the resolver. Email and Phone
// may be raw; they are normalized before matching.
type Identity struct {
	ExternalID string
	Name       string
	Email      string
	Phone      string
	Tier       string
	Status     Status
}

// Suggestion is the minimal projection exposed to the public kiosk.
type Suggestion struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
}
