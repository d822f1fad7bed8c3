package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sqlItem is the row model for the structured-store adapter. One table per
// named store, created lazily on first access.
type sqlItem struct {
	ItemKey   string    `gorm:"primaryKey;column:item_key;size:512"`
	ItemValue string    `gorm:"column:item_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// SQL adapts a gorm database to the [Adapter] contract, backed by a named
// key-value table. The table is migrated lazily on the first operation; a
// failed migration poisons the adapter, and every subsequent operation
// degrades to a silent miss/no-op.
type SQL struct {
	db    *gorm.DB
	table string
	hook  ErrorHook

	initOnce sync.Once
	initErr  error
}

// NewSQL creates a structured-store adapter over db using the given table
// name as its namespace.
func NewSQL(db *gorm.DB, table string, hook ErrorHook) *SQL {
	return &SQL{
		db:    db,
		table: table,
		hook:  hook,
	}
}

func (s *SQL) ready(ctx context.Context) bool {
	if s == nil || s.db == nil || s.table == "" {
		return false
	}

	s.initOnce.Do(func() {
		s.initErr = s.db.WithContext(ctx).Table(s.table).AutoMigrate(&sqlItem{})
		if s.initErr != nil {
			s.hook.emit("init", s.table, s.initErr)
		}
	})

	return s.initErr == nil
}

// GetItem reads the value for key. Absent rows and backend errors both
// report absent.
func (s *SQL) GetItem(ctx context.Context, key string) (string, bool) {
	if !s.ready(ctx) {
		return "", false
	}

	var item sqlItem
	err := s.db.WithContext(ctx).Table(s.table).
		Where("item_key = ?", key).
		Take(&item).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.hook.emit("get", key, err)
		}
		return "", false
	}
	return item.ItemValue, true
}

// SetItem upserts value under key, best effort.
func (s *SQL) SetItem(ctx context.Context, key, value string) {
	if !s.ready(ctx) {
		return
	}

	item := sqlItem{
		ItemKey:   key,
		ItemValue: value,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Table(s.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"item_value", "updated_at"}),
		}).
		Create(&item).Error
	if err != nil {
		s.hook.emit("set", key, err)
	}
}

// RemoveItem deletes the row for key, best effort.
func (s *SQL) RemoveItem(ctx context.Context, key string) {
	if !s.ready(ctx) {
		return
	}

	err := s.db.WithContext(ctx).Table(s.table).
		Where("item_key = ?", key).
		Delete(&sqlItem{}).Error
	if err != nil {
		s.hook.emit("remove", key, err)
	}
}
