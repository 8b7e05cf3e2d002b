package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Method string

const (
	MethodQR     Method = "QR"
	MethodManual Method = "manual"
)

const StatusOK = "ok"

// CheckIn is an append-only attendance fact.
type CheckIn struct {
	ID             snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	MemberID       snowflake.ID `gorm:"not null;uniqueIndex:ux_check_ins_member_bucket,priority:1;index:ix_check_ins_member_time,priority:1" json:"member_id"`
	LocationID     int64        `gorm:"not null" json:"location_id"`
	CheckedInAt    time.Time    `gorm:"column:checked_in_at;not null;index:ix_check_ins_member_time,priority:2,sort:desc" json:"checked_in_at"`
	Method         Method       `gorm:"size:16;not null" json:"method"`
	SourceDeviceID string       `gorm:"column:source_device_id;size:64;not null" json:"source_device_id"`
	Status         string       `gorm:"size:16;not null;default:ok" json:"status"`
	// WindowBucket is floor(checked_in_at / window); the unique index on
	// (member_id, window_bucket) rejects racing inserts for the same window.
	WindowBucket int64 `gorm:"column:window_bucket;not null;uniqueIndex:ux_check_ins_member_bucket,priority:2" json:"-"`
}

func (CheckIn) TableName() string { return "check_ins" }

type Location struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Timezone  string    `gorm:"size:64;not null" json:"timezone"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Location) TableName() string { return "locations" }

// RecentCheckIn is a dashboard row joined with the member's name.
type RecentCheckIn struct {
	ID             snowflake.ID `json:"id"`
	MemberID       snowflake.ID `json:"member_id"`
	MemberName     string       `json:"member_name"`
	CheckedInAt    time.Time    `json:"checked_in_at"`
	Method         Method       `json:"method"`
	SourceDeviceID string       `json:"source_device_id"`
}

// Bucket maps t onto its suppression-window slot.
func Bucket(t time.Time, window time.Duration) int64 {
	if window <= 0 {
		return t.UnixNano()
	}
	return t.UnixNano() / int64(window)
}
