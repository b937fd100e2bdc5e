package history

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/suPer8Hu/health-assistant/internal/chat"
)

// Entry is one history row. Seq orders a profile's log, highest first.
type Entry struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement"`
	Owner          string         `gorm:"type:varchar(64);not null;uniqueIndex:uniq_history_owner_conv,priority:1;index:idx_history_owner_seq,priority:1"`
	ConversationID string         `gorm:"type:varchar(64);not null;uniqueIndex:uniq_history_owner_conv,priority:2"`
	Preview        string         `gorm:"type:varchar(255)"`
	Messages       []chat.Message `gorm:"serializer:json;type:mediumtext"`
	Seq            int64          `gorm:"not null;index:idx_history_owner_seq,priority:2"`
	CreatedAt      time.Time
}

func (Entry) TableName() string { return "chat_history" }

func (e Entry) conversation() chat.Conversation {
	return chat.Conversation{
		ID:        e.ConversationID,
		CreatedAt: e.CreatedAt,
		Preview:   e.Preview,
		Messages:  append([]chat.Message(nil), e.Messages...),
	}
}

// SQLBackend keeps logs in a relational database through gorm.
type SQLBackend struct {
	db *gorm.DB
}

func NewSQLBackend(db *gorm.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) For(owner string) chat.Store {
	return &sqlStore{db: b.db, owner: owner}
}

type sqlStore struct {
	db    *gorm.DB
	owner string
}

func (s *sqlStore) Save(ctx context.Context, conv chat.Conversation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&Entry{}).
			Where("owner = ?", s.owner).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		var existing Entry
		err := tx.Where("owner = ? AND conversation_id = ?", s.owner, conv.ID).Take(&existing).Error
		switch {
		case err == nil:
			existing.Messages = conv.Messages
			existing.Seq = maxSeq + 1
			if existing.Preview == "" {
				existing.Preview = conv.Preview
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			created := conv.CreatedAt
			if created.IsZero() {
				created = time.Now()
			}
			if err := tx.Create(&Entry{
				Owner:          s.owner,
				ConversationID: conv.ID,
				Preview:        conv.Preview,
				Messages:       conv.Messages,
				Seq:            maxSeq + 1,
				CreatedAt:      created,
			}).Error; err != nil {
				return err
			}
		default:
			return err
		}

		// evict everything past the newest MaxEntries
		var ids []uint64
		if err := tx.Model(&Entry{}).
			Where("owner = ?", s.owner).
			Order("seq DESC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) <= MaxEntries {
			return nil
		}
		return tx.Where("id IN ?", ids[MaxEntries:]).Delete(&Entry{}).Error
	})
}

func (s *sqlStore) List(ctx context.Context) ([]chat.Conversation, error) {
	var rows []Entry
	if err := s.db.WithContext(ctx).
		Where("owner = ?", s.owner).
		Order("seq DESC").
		Limit(MaxEntries).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]chat.Conversation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.conversation())
	}
	return out, nil
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Where("owner = ? AND conversation_id = ?", s.owner, id).
		Delete(&Entry{}).Error
}

func (s *sqlStore) Load(ctx context.Context, id string) (chat.Conversation, error) {
	var e Entry
	if err := s.db.WithContext(ctx).
		Where("owner = ? AND conversation_id = ?", s.owner, id).
		Take(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Conversation{}, ErrNotFound
		}
		return chat.Conversation{}, err
	}
	return e.conversation(), nil
}
