package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/careloop/priorauth/internal/config"
	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/internal/domain/pacase"
	"github.com/careloop/priorauth/internal/domain/review"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "auth", "audit"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&pacase.Case{},
		&pacase.StatusChange{},
		&pacase.Note{},
		&review.PayerRule{},
		&review.RiskFactor{},
		&review.PolicyGap{},
		&review.Recommendation{},
		&review.Analysis{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Worklist: open cases by status, excluding closed ones
		{
			name:  "idx_cases_open_worklist",
			query: `CREATE INDEX IF NOT EXISTS idx_cases_open_worklist ON clinical.cases (status, assigned_to) WHERE deleted_at IS NULL AND status NOT IN ('approved', 'denied')`,
		},
		// Case search: GIN index for full-text search on patient name + MRN
		{
			name:  "idx_cases_patient_search",
			query: `CREATE INDEX IF NOT EXISTS idx_cases_patient_trgm ON clinical.cases USING gin ((patient_name || ' ' || mrn) gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_status_history_case_time",
			query: `CREATE INDEX IF NOT EXISTS idx_status_history_case_time ON clinical.case_status_history (case_id, created_at)`,
		},
		{
			name:  "idx_audit_case_time",
			query: `CREATE INDEX IF NOT EXISTS idx_audit_case_time ON audit.logs (case_id, occurred_at) WHERE case_id IS NOT NULL`,
		},
	}

	_ = db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}
