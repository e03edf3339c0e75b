package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/nexusshop-storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type closer interface {
	Close() error
}

// SQLStore keeps blobs in the storage_entries table (sqlite or postgres).
// The schema is owned by pkg/migrate.
type SQLStore struct {
	conn   *gorm.DB
	closer closer
	now    func() time.Time
}

// NewSQLStore uses conn for queries; owner, when non-nil, is closed by Close.
func NewSQLStore(conn *gorm.DB, owner closer) (*SQLStore, error) {
	if conn == nil {
		return nil, fmt.Errorf("database connection required")
	}
	return &SQLStore{conn: conn, closer: owner, now: time.Now}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var entry models.StorageEntry
	err := s.conn.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(entry.Value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	entry := models.StorageEntry{Key: key, Value: string(value), UpdatedAt: s.now().UTC()}
	err := s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.conn.WithContext(ctx).Where("entry_key = ?", key).Delete(&models.StorageEntry{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
