package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hzerradi/formatrack/internal/config"
	"github.com/hzerradi/formatrack/internal/models"
)

// Models lists every persisted entity in FK dependency order; shared with
// tests so the schema never drifts from the application's.
func Models() []any {
	return []any{
		&models.Region{}, &models.Ville{}, &models.Site{}, &models.Ista{},
		&models.Branche{}, &models.Filiere{},
		&models.User{}, &models.RoleAssignment{},
		&models.Formation{}, &models.Participant{},
	}
}

func ConnectAndMigrate(cfg config.Config) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DatabaseDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// Masked DSN once for diagnostics
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	fmt.Println("[DB] Using DSN:", masked)

	if cfg.RunSQLMigrations {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"users", "formations", "participants"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if cfg.SeedLookups {
		seed(db)
	}
	return db, nil
}

// seed remplit les référentiels de base, idempotent.
func seed(db *gorm.DB) {
	baseRegions := []models.Region{
		{Nom: "Casablanca-Settat"},
		{Nom: "Rabat-Salé-Kénitra"},
		{Nom: "Souss-Massa"},
		{Nom: "Fès-Meknès"},
	}
	for _, r := range baseRegions {
		var existing models.Region
		if err := db.Where("nom = ?", r.Nom).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&r)
		}
	}
	baseBranches := []models.Branche{
		{Nom: "TIC"},
		{Nom: "BTP"},
		{Nom: "Industrie"},
		{Nom: "Tourisme et Hôtellerie"},
	}
	for _, b := range baseBranches {
		var existing models.Branche
		if err := db.Where("nom = ?", b.Nom).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&b)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
