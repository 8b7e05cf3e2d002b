package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Outcome string

const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeNotFound   Outcome = "not_found"
)

const (
	MessageNotFound   = "Member not found or inactive"
	MessageSuppressed = "Already checked in recently"
	RecentLimit       = 25
)

// Request selects a member by the first present selector: a numeric member
// id, then a QR token, then email with phone as fallback.
type Request struct {
	MemberID string
	QRToken  string
	Email    string
	Phone    string
	DeviceID string
}

type Result struct {
	Outcome    Outcome      `json:"outcome"`
	MemberID   snowflake.ID `json:"member_id,omitempty"`
	MemberName string       `json:"member_name,omitempty"`
	Message    string       `json:"message,omitempty"`
	CheckIn    *CheckIn     `json:"check_in,omitempty"`
}

type Service interface {
	Record(ctx context.Context, req Request) (Result, error)
	Recent(ctx context.Context, limit int) ([]RecentCheckIn, error)
}

var ErrInvalidLimit = errors.New("invalid_limit")
