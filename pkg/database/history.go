package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/party-queue-client/pkg/models"
)

const (
	ReasonAutoAdvance = "auto_advance"
	ReasonManual      = "manual"
)

// HistoryStore records the tracks a host session started.
type HistoryStore struct {
	db *gorm.DB
}

// NewMySQLHistoryStore connects to MySQL and migrates the history table.
func NewMySQLHistoryStore(dsn string) (*HistoryStore, error) {
	store, err := Open(mysql.Open(dsn))
	if err != nil {
		return nil, err
	}

	sqlDB, err := store.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return store, nil
}

// Open builds a store on any gorm dialector.
func Open(dialector gorm.Dialector) (*HistoryStore, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) RecordPlay(ctx context.Context, sessionID string, track models.Track, reason string, at time.Time) (*models.HistoryEntry, error) {
	if at.IsZero() {
		at = time.Now()
	}
	entry := &models.HistoryEntry{
		SessionID: sessionID,
		TrackURI:  track.URI,
		TrackName: track.Name,
		Reason:    reason,
		PlayedAt:  at.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to record play: %w", err)
	}
	return entry, nil
}

// Recent returns up to limit entries for the session, newest first.
func (s *HistoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []models.HistoryEntry
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("played_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}

func (s *HistoryStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
