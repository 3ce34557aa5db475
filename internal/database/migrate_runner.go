package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"blogicum/internal/middleware"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// MigrationLog is one row of migration_logs: a script version that has
// been applied to this database.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Migrator applies a fixed, ordered set of SQL migrations and records each
// version in migration_logs. A script and its log row commit together.
type Migrator struct {
	db  *gorm.DB
	set []Migration
}

// NewMigrator returns a Migrator over the embedded migrations.
func NewMigrator(db *gorm.DB) *Migrator {
	return NewMigratorFor(db, migrations)
}

// NewMigratorFor returns a Migrator over set, sorted by version.
func NewMigratorFor(db *gorm.DB, set []Migration) *Migrator {
	sorted := append([]Migration(nil), set...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, set: sorted}
}

// Applied lists recorded versions in ascending order. A database that has
// never been migrated has none.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	var versions []int
	err := m.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	switch {
	case err == nil:
		return versions, nil
	case errors.Is(err, gorm.ErrRecordNotFound), isMissingTableError(err):
		return []int{}, nil
	default:
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
}

// Pending lists the migrations not yet recorded.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(m.set, func(mig Migration, _ int) bool {
		return !lo.Contains(applied, mig.Version)
	}), nil
}

// Up applies every pending migration in order and returns how many ran.
// It refuses to run when the log holds versions this binary does not know.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return 0, fmt.Errorf("ensure migration_logs: %w", err)
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := checkKnownVersions(applied, m.set); err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range m.set {
		if lo.Contains(applied, mig.Version) {
			continue
		}
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return fmt.Errorf("apply %s: %w", mig, err)
			}
			return tx.Create(&MigrationLog{Version: mig.Version, Name: mig.Name}).Error
		})
		if err != nil {
			return ran, err
		}
		middleware.Logger.InfoContext(ctx, "migration applied",
			slog.Int("version", mig.Version), slog.String("name", mig.Name))
		ran++
	}
	return ran, nil
}

// Down runs the down script of an applied version and removes its log row.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig, ok := lo.Find(m.set, func(mig Migration) bool { return mig.Version == version })
	if !ok {
		return fmt.Errorf("migration version %d not found", version)
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if !lo.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", mig, err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "migration rolled back",
		slog.Int("version", version), slog.String("name", mig.Name))
	return nil
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	_, err := NewMigrator(db).Up(ctx)
	return err
}

// RollbackMigration reverts one embedded migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(db).Down(ctx, version)
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// checkKnownVersions fails when the log records a version missing from
// set, which means the database was migrated by a newer binary.
func checkKnownVersions(applied []int, set []Migration) error {
	known := lo.Map(set, func(mig Migration, _ int) int { return mig.Version })
	unknown := lo.Without(applied, known...)
	if len(unknown) == 0 {
		return nil
	}
	sort.Ints(unknown)
	labels := lo.Map(unknown, func(v int, _ int) string { return fmt.Sprintf("%06d", v) })
	return fmt.Errorf("migration_logs has versions this binary does not know: %s (deploy the matching binary or rebuild the database)",
		strings.Join(labels, ", "))
}
