package prefs

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Setting struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Owner     string `gorm:"type:varchar(64);not null;uniqueIndex:uniq_pref_owner_key,priority:1"`
	Key       string `gorm:"column:pref_key;type:varchar(64);not null;uniqueIndex:uniq_pref_owner_key,priority:2"`
	Value     string `gorm:"type:varchar(255);not null"`
	UpdatedAt time.Time
}

func (Setting) TableName() string { return "user_preferences" }

type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, owner string) (Preferences, error) {
	var rows []Setting
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Find(&rows).Error; err != nil {
		return Preferences{}, err
	}
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	return fromValues(values), nil
}

func (s *SQLStore) Put(ctx context.Context, owner string, p Preferences) error {
	rows := make([]Setting, 0, 2)
	for k, v := range p.values() {
		rows = append(rows, Setting{Owner: owner, Key: k, Value: v})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}
