package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	checkindomain "github.com/smallbiznis/frontdesk/internal/checkin/domain"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	orderdomain "github.com/smallbiznis/frontdesk/internal/order/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	productdomain "github.com/smallbiznis/frontdesk/internal/product/domain"
	staffdomain "github.com/smallbiznis/frontdesk/internal/staff/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&checkindomain.Location{},
		&memberdomain.Member{},
		&checkindomain.CheckIn{},
		&staffdomain.Staff{},
		&productdomain.Product{},
		&productdomain.Price{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&orderdomain.OrderPayment{},
		&paymentdomain.EventRecord{},
		&auditdomain.AuditLog{},
	}
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the gorm models on sqlite and mysql.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
