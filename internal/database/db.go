package database

import (
	"fmt"
	"strings"
	"time"

	"silvess-backend/internal/config"
	"silvess-backend/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates the schema. The
// returned handle is passed explicitly to every request; there is no package
// level connection. A nil log discards migration messages.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DatabaseDSN,
			PreferSimpleProtocol: true,
		})
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel(cfg.DBLogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		// SQLite has a single writer; one connection keeps in-memory
		// databases alive and serialises stock updates.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns / 2)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := Migrate(db, log); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table and the constraints AutoMigrate
// does not know about.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("schema migrated", zap.String("driver", db.Dialector.Name()), zap.Int("tables", len(models.All())))

	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return ensureStockConstraint(db, log)
}

// ensureStockConstraint adds the CHECK that keeps stock from going negative,
// whatever code path writes it.
func ensureStockConstraint(db *gorm.DB, log *zap.Logger) error {
	var exists bool
	if err := db.Raw(`
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.table_constraints
			WHERE table_name = 'ingredients'
			AND constraint_name = 'chk_ingredients_stock_non_negative'
		)
	`).Scan(&exists).Error; err != nil {
		return fmt.Errorf("look up stock constraint: %w", err)
	}
	if exists {
		return nil
	}

	log.Info("adding constraint", zap.String("constraint", "chk_ingredients_stock_non_negative"))
	if err := db.Exec(`
		ALTER TABLE ingredients
		ADD CONSTRAINT chk_ingredients_stock_non_negative CHECK (current_stock >= 0)
	`).Error; err != nil {
		return fmt.Errorf("add stock constraint: %w", err)
	}
	return nil
}

// Ping checks the connection is usable.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func logLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
