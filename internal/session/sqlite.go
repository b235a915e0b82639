package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
)

// MemoryPath opens a throwaway in-process database
const MemoryPath = ":memory:"

// SessionItem is the persisted form of an Item
type SessionItem struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID string    `gorm:"index;size:128;not null"`
	Role      string    `gorm:"size:32;not null"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

// SQLStore persists sessions in SQLite through GORM
type SQLStore struct {
	DB  *gorm.DB
	log logger.Logger
}

// Open opens (creating if needed) the session database at path and migrates the schema.
func Open(path string) (*SQLStore, error) {
	log := logger.Global().Module("session")

	dsn := path
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.New(err).
					Component("session").
					Category(errors.CategoryFileIO).
					Context("operation", "create_session_dir").
					Build()
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, 200*time.Millisecond),
	})
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open session database: %w", err)).
			Component("session").
			Category(errors.CategoryDatabase).
			Build()
	}

	if path == MemoryPath {
		// every new connection to :memory: is a separate empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.New(err).Component("session").Category(errors.CategoryDatabase).Build()
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&SessionItem{}); err != nil {
		return nil, errors.New(fmt.Errorf("failed to migrate session schema: %w", err)).
			Component("session").
			Category(errors.CategoryDatabase).
			Build()
	}

	log.Debug("session store opened", logger.String("path", path))
	return &SQLStore{DB: db, log: log}, nil
}

// Session returns a store-backed session with the given id
func (s *SQLStore) Session(id string) Session {
	return &sqlSession{id: id, store: s}
}

// Close closes the underlying connection pool
func (s *SQLStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqlSession struct {
	id    string
	store *SQLStore
}

func (s *sqlSession) ID() string { return s.id }

func (s *sqlSession) Items(ctx context.Context, limit int) ([]Item, error) {
	var rows []SessionItem
	q := s.store.DB.WithContext(ctx).Where("session_id = ?", s.id).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, dbError(err, "load_items")
	}
	slices.Reverse(rows)

	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = Item{Role: row.Role, Content: row.Content, CreatedAt: row.CreatedAt}
	}
	return items, nil
}

func (s *sqlSession) AddItems(ctx context.Context, items ...Item) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]SessionItem, len(items))
	for i, item := range items {
		created := item.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows[i] = SessionItem{SessionID: s.id, Role: item.Role, Content: item.Content, CreatedAt: created}
	}
	if err := s.store.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return dbError(err, "add_items")
	}
	return nil
}

func (s *sqlSession) PopItem(ctx context.Context) (*Item, error) {
	var popped *Item
	err := s.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []SessionItem
		if err := tx.Where("session_id = ?", s.id).Order("id DESC").Limit(1).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Delete(&SessionItem{}, rows[0].ID).Error; err != nil {
			return err
		}
		popped = &Item{Role: rows[0].Role, Content: rows[0].Content, CreatedAt: rows[0].CreatedAt}
		return nil
	})
	if err != nil {
		return nil, dbError(err, "pop_item")
	}
	return popped, nil
}

func (s *sqlSession) Clear(ctx context.Context) error {
	if err := s.store.DB.WithContext(ctx).Where("session_id = ?", s.id).Delete(&SessionItem{}).Error; err != nil {
		return dbError(err, "clear")
	}
	return nil
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("session").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
