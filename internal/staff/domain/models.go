package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleFrontdesk Role = "frontdesk"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleFrontdesk
}

// Staff is one issued PIN. The newest row of a role is that role's active PIN.
type Staff struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name      string       `json:"name" gorm:"size:255;not null"`
	PinHash   string       `json:"-" gorm:"column:pin_hash;size:255;not null"`
	Role      Role         `json:"role" gorm:"size:32;not null;default:admin;index"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (Staff) TableName() string { return "staff" }
