// Package store keeps lobby history in Postgres: created lobbies, every
// command with its outcome, and chat lines.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrDuplicateCode = errors.New("lobby code already used")

type Lobby struct {
	ID         uint   `gorm:"primaryKey"`
	Code       string `gorm:"size:16;uniqueIndex"`
	ServerName string
	Map        string
	CreatedAt  time.Time
}

type Command struct {
	ID        uint   `gorm:"primaryKey"`
	LobbyCode string `gorm:"size:16;index"`
	Client    int
	Text      string
	Applied   bool
	Reason    string
	CreatedAt time.Time
}

type ChatLine struct {
	ID        uint   `gorm:"primaryKey"`
	LobbyCode string `gorm:"size:16;index"`
	From      string
	Team      bool
	Text      string
	CreatedAt time.Time
}

type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Lobby{}, &Command{}, &ChatLine{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateLobby(ctx context.Context, code, serverName, mapUID string) error {
	err := s.db.WithContext(ctx).Create(&Lobby{Code: code, ServerName: serverName, Map: mapUID}).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, code)
	}
	return err
}

func (s *Store) RecordCommand(ctx context.Context, code string, client int, text string, applied bool, reason string) error {
	return s.db.WithContext(ctx).Create(&Command{
		LobbyCode: code,
		Client:    client,
		Text:      text,
		Applied:   applied,
		Reason:    reason,
	}).Error
}

func (s *Store) RecordChat(ctx context.Context, code string, from string, team bool, text string) error {
	return s.db.WithContext(ctx).Create(&ChatLine{LobbyCode: code, From: from, Team: team, Text: text}).Error
}

// Commands returns the lobby's commands in the order they were applied.
func (s *Store) Commands(ctx context.Context, code string) ([]Command, error) {
	var out []Command
	err := s.db.WithContext(ctx).Where("lobby_code = ?", code).Order("id").Find(&out).Error
	return out, err
}

func (s *Store) Chat(ctx context.Context, code string) ([]ChatLine, error) {
	var out []ChatLine
	err := s.db.WithContext(ctx).Where("lobby_code = ?", code).Order("id").Find(&out).Error
	return out, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
