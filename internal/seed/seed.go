package seed

import (
	"context"
	"errors"
	"time"

	checkindomain "github.com/smallbiznis/frontdesk/internal/checkin/domain"
	"gorm.io/gorm"
)

const (
	DefaultLocationName     = "Atlas Gym"
	DefaultLocationTimezone = "America/Los_Angeles"
)

// EnsureLocation seeds the location check-ins are recorded against.
func EnsureLocation(db *gorm.DB, id int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if id <= 0 {
		id = 1
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var location checkindomain.Location
		err := tx.WithContext(ctx).Where("id = ?", id).First(&location).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		location = checkindomain.Location{
			ID:        id,
			Name:      DefaultLocationName,
			Timezone:  DefaultLocationTimezone,
			CreatedAt: time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(&location).Error
	})
}
