package store

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type roomRecord struct {
	Name      string `gorm:"primaryKey;size:190"`
	CreatedAt time.Time
}

func (roomRecord) TableName() string { return "rooms" }

type messageRecord struct {
	ID       uint   `gorm:"primarykey"`
	Key      string `gorm:"index;size:190;not null"`
	Username string `gorm:"size:190;not null"`
	Text     string `gorm:"not null"`
	Ts       int64  `gorm:"not null"`
}

func (messageRecord) TableName() string { return "messages" }

// SQLite is the embedded durable Store backend, built on GORM. Room and DM
// logs share one messages table; DM keys carry a prefix so they can never
// collide with a room name.
type SQLite struct {
	db  *gorm.DB
	cap int
}

const dmKeyPrefix = "dm|"

// OpenSQLite opens (creating if needed) the database at path and migrates
// the schema. The retention cap applies per log key.
func OpenSQLite(path string, retention int) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&roomRecord{}, &messageRecord{}); err != nil {
		return nil, err
	}
	return &SQLite{db: db, cap: retention}, nil
}

func (s *SQLite) EnsureRoom(ctx context.Context, room string) error {
	rec := roomRecord{Name: room}
	return s.db.WithContext(ctx).FirstOrCreate(&rec, roomRecord{Name: room}).Error
}

func (s *SQLite) Rooms(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&roomRecord{}).
		Order("created_at").
		Pluck("name", &names).Error
	return names, err
}

func (s *SQLite) AppendRoom(ctx context.Context, room string, msg Message) error {
	if err := s.EnsureRoom(ctx, room); err != nil {
		return err
	}
	return s.append(ctx, room, msg)
}

func (s *SQLite) RoomHistory(ctx context.Context, room string, limit int) ([]Message, error) {
	return s.history(ctx, room, limit)
}

func (s *SQLite) AppendDM(ctx context.Context, a, b string, msg Message) error {
	return s.append(ctx, dmKeyPrefix+DMKey(a, b), msg)
}

func (s *SQLite) DMHistory(ctx context.Context, a, b string) ([]Message, error) {
	return s.history(ctx, dmKeyPrefix+DMKey(a, b), 0)
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLite) append(ctx context.Context, key string, msg Message) error {
	rec := messageRecord{Key: key, Username: msg.Username, Text: msg.Text, Ts: msg.Ts}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	return s.trim(ctx, key)
}

// trim enforces FIFO retention by deleting every row older than the newest
// cap entries for the key.
func (s *SQLite) trim(ctx context.Context, key string) error {
	if s.cap <= 0 {
		return nil
	}
	var cutoff []uint
	err := s.db.WithContext(ctx).
		Model(&messageRecord{}).
		Where("key = ?", key).
		Order("id desc").
		Offset(s.cap - 1).
		Limit(1).
		Pluck("id", &cutoff).Error
	if err != nil || len(cutoff) == 0 {
		return err
	}
	return s.db.WithContext(ctx).
		Where("key = ? AND id < ?", key, cutoff[0]).
		Delete(&messageRecord{}).Error
}

func (s *SQLite) history(ctx context.Context, key string, limit int) ([]Message, error) {
	q := s.db.WithContext(ctx).
		Model(&messageRecord{}).
		Where("key = ?", key).
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []messageRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	// Rows come back newest first; reverse into append order.
	out := make([]Message, len(recs))
	for i, rec := range recs {
		out[len(recs)-1-i] = Message{Username: rec.Username, Text: rec.Text, Ts: rec.Ts}
	}
	return out, nil
}
