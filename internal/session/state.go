package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Durable client state keys.
const (
	KeySelectedCandidateID = "selectedCandidateId"
	KeyAuthToken           = "authToken"
	KeyAuthUser            = "authUser"
)

// StateRecord is one key of durable client state.
type StateRecord struct {
	Key       string    `gorm:"type:varchar(100);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for StateRecord
func (StateRecord) TableName() string {
	return "client_state"
}

// StateStore is durable client storage shared by every session that opens the
// same database file.
type StateStore struct {
	db *gorm.DB
}

// NewStateStore opens (or creates) the SQLite database at dbPath.
func NewStateStore(dbPath string) (*StateStore, error) {
	if dbPath == "" {
		dbPath = "onboarding_client.db"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open client state database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and serializes writers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&StateRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate client state database: %w", err)
	}

	return &StateStore{db: db}, nil
}

// NewInMemoryStateStore creates a StateStore backed by an in-memory database (useful for testing)
func NewInMemoryStateStore() (*StateStore, error) {
	return NewStateStore(":memory:")
}

// Get returns the value for key, or "" when it is not set.
func (s *StateStore) Get(ctx context.Context, key string) (string, error) {
	var record StateRecord
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read client state %q: %w", key, err)
	}
	return record.Value, nil
}

// Set upserts key.
func (s *StateStore) Set(ctx context.Context, key, value string) error {
	record := StateRecord{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to write client state %q: %w", key, err)
	}
	return nil
}

// Delete removes the given keys.
func (s *StateStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&StateRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}

// SelectedCandidateID returns the persisted HR selection, unvalidated.
func (s *StateStore) SelectedCandidateID(ctx context.Context) (string, error) {
	return s.Get(ctx, KeySelectedCandidateID)
}

// Close closes the database connection
func (s *StateStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
