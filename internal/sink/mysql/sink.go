package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/notesctl/internal/sink"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// SinkID is the canonical sink identifier for the MySQL notes table.
	SinkID = "sink.mysql"
)

// NoteRow is the gorm model of one exported note.
type NoteRow struct {
	AppleID                 int64      `gorm:"column:apple_id;primaryKey;autoIncrement:false"`
	AppleTitle              string     `gorm:"column:apple_title;type:text"`
	AppleSnippet            string     `gorm:"column:apple_snippet;type:text"`
	AppleFolder             string     `gorm:"column:apple_folder;type:varchar(255);index"`
	AppleCreated            *time.Time `gorm:"column:apple_created"`
	AppleLastModified       *time.Time `gorm:"column:apple_last_modified"`
	AppleData               string     `gorm:"column:apple_data;type:longtext"`
	AppleAttachmentID       string     `gorm:"column:apple_attachment_id;type:text"`
	AppleAttachmentPath     string     `gorm:"column:apple_attachment_path;type:text"`
	AppleAccountDescription string     `gorm:"column:apple_account_description;type:varchar(255)"`
	AppleAccountIdentifier  string     `gorm:"column:apple_account_identifier;type:varchar(255)"`
	AppleAccountUsername    string     `gorm:"column:apple_account_username;type:varchar(255)"`
	AppleVersion            string     `gorm:"column:apple_version;type:varchar(64)"`
	AppleUser               string     `gorm:"column:apple_user;type:varchar(255)"`
	AppleSource             string     `gorm:"column:apple_source;type:text"`
}

func (NoteRow) TableName() string {
	return "notes"
}

// RowFromRecord maps a record onto the model.
func RowFromRecord(rec sink.Record) NoteRow {
	return NoteRow{
		AppleID:                 rec.ID,
		AppleTitle:              rec.Title,
		AppleSnippet:            rec.Snippet,
		AppleFolder:             rec.Folder,
		AppleCreated:            timePtr(rec.Created),
		AppleLastModified:       timePtr(rec.Modified),
		AppleData:               rec.HTML,
		AppleAttachmentID:       strings.Join(rec.AttachmentIDs, ", "),
		AppleAttachmentPath:     strings.Join(rec.AttachmentPaths, ", "),
		AppleAccountDescription: rec.Account,
		AppleAccountIdentifier:  rec.AccountID,
		AppleAccountUsername:    rec.AccountUser,
		AppleVersion:            rec.Version,
		AppleUser:               rec.User,
		AppleSource:             rec.Source,
	}
}

// Sink saves notes through gorm.
type Sink struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the notes table.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sink.mysql: open: %w", err)
	}
	return NewWithDB(ctx, db)
}

// NewWithDB wraps an existing gorm handle and migrates the notes table.
func NewWithDB(ctx context.Context, db *gorm.DB) (*Sink, error) {
	if err := db.WithContext(ctx).AutoMigrate(&NoteRow{}); err != nil {
		return nil, fmt.Errorf("sink.mysql: migrate: %w", err)
	}
	return &Sink{db: db}, nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "MySQL",
		Description: "Notes table in a MySQL database via gorm",
	}
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	row := RowFromRecord(rec)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("sink.mysql: save %d: %w", rec.ID, err)
	}
	return nil
}

func (s *Sink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
