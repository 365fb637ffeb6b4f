// Package recorder keeps an engagement log of fired shots in a SQL database.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory SQLite database
const MemoryPath = ":memory:"

// Shot is one fired solution as the host was told to apply it
type Shot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	Session   string    `gorm:"size:36;index" json:"session"`
	Tick      int64     `json:"tick"`
	Target    string    `gorm:"size:128" json:"target"`
	Distance  float64   `json:"distance"`
	Bearing   float64   `json:"bearing"` // Aim bearing in world frame
	GunTurn   float64   `json:"gunTurn"`
	Power     float64   `json:"power"`
	Stale     bool      `json:"stale"`
	Policy    string    `gorm:"size:16" json:"policy"`
}

// Options selects the database backing the store
type Options struct {
	Driver string // "sqlite" or "postgres"
	Path   string // SQLite file path, or MemoryPath
	DSN    string // Postgres DSN
}

// Store writes and reads shots
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the configured database and migrates the shot table
func Open(opts Options, log zerolog.Logger) (*Store, error) {
	gormCfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(opts.Path)
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("unknown recorder driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", opts.Driver, err)
	}

	if db.Dialector.Name() == "sqlite" {
		// One connection keeps an in-memory database alive and serializes writers
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Shot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate shots table: %w", err)
	}

	log.Info().Str("driver", db.Dialector.Name()).Msg("Shot recorder ready")
	return &Store{db: db, log: log}, nil
}

// RecordShot appends a shot to the log
func (s *Store) RecordShot(ctx context.Context, shot Shot) error {
	if err := s.db.WithContext(ctx).Create(&shot).Error; err != nil {
		return fmt.Errorf("failed to record shot: %w", err)
	}
	return nil
}

// RecentShots returns up to limit shots, newest first
func (s *Store) RecentShots(ctx context.Context, limit int) ([]Shot, error) {
	var shots []Shot
	err := s.db.WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Find(&shots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query shots: %w", err)
	}
	return shots, nil
}

// SessionSummary aggregates the shots of one session
type SessionSummary struct {
	Session      string  `json:"session"`
	Shots        int64   `json:"shots"`
	AveragePower float64 `json:"averagePower"`
}

// Summarize returns per-session shot counts and average power
func (s *Store) Summarize(ctx context.Context) ([]SessionSummary, error) {
	var rows []SessionSummary
	err := s.db.WithContext(ctx).
		Model(&Shot{}).
		Select("session, count(*) as shots, avg(power) as average_power").
		Group("session").
		Order("session").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize shots: %w", err)
	}
	return rows, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
