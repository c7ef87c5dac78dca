package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

// documentRow mirrors the postgres resume_documents table.
type documentRow struct {
	Collection string         `gorm:"primaryKey;size:128;index:idx_resume_documents_listing,priority:1"`
	ID         string         `gorm:"primaryKey;size:128"`
	Status     string         `gorm:"size:32;not null;index:idx_resume_documents_listing,priority:2"`
	UploadDate time.Time      `gorm:"index:idx_resume_documents_listing,priority:3,sort:desc"`
	Body       datatypes.JSON `gorm:"not null"`
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "resume_documents" }

// SQLiteStore keeps documents in a local SQLite file through gorm. It is
// meant for single-process use such as the CLI and local development.
type SQLiteStore struct {
	db    *gorm.DB
	names Names
}

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates the documents table.
func NewSQLiteStore(path string, names Names) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql DB: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate documents: %w", err)
	}
	return &SQLiteStore{db: db, names: names}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, c Collection, doc *models.ResumeDocument) error {
	row, err := s.row(c, doc)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s/%s", ErrConflict, row.Collection, doc.ID)
		}
		return classifySQLite("create document", err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, c Collection, id string) (*models.ResumeDocument, error) {
	coll, err := s.names.physical(c)
	if err != nil {
		return nil, err
	}

	var row documentRow
	err = s.db.WithContext(ctx).Where("collection = ? AND id = ?", coll, id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifySQLite("read document", err)
	}
	return decode(row.Body)
}

func (s *SQLiteStore) Upsert(ctx context.Context, c Collection, doc *models.ResumeDocument) error {
	row, err := s.row(c, doc)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "upload_date", "body", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return classifySQLite("upsert document", err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, c Collection, opts QueryOptions) ([]*models.ResumeDocument, error) {
	coll, err := s.names.physical(c)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("collection = ?", coll)
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}

	var rows []documentRow
	if err := q.Order("upload_date DESC").Order("id").Limit(opts.limit()).Find(&rows).Error; err != nil {
		return nil, classifySQLite("query documents", err)
	}

	docs := make([]*models.ResumeDocument, 0, len(rows))
	for _, row := range rows {
		doc, err := decode(row.Body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, c Collection, id string) error {
	coll, err := s.names.physical(c)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Where("collection = ? AND id = ?", coll, id).Delete(&documentRow{}).Error
	if err != nil {
		return classifySQLite("delete document", err)
	}
	return nil
}

func (s *SQLiteStore) row(c Collection, doc *models.ResumeDocument) (*documentRow, error) {
	coll, err := s.names.physical(c)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.ID == "" {
		return nil, errors.New("document id required")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return &documentRow{
		Collection: coll,
		ID:         doc.ID,
		Status:     string(doc.Status),
		UploadDate: doc.UploadDate.UTC(),
		Body:       datatypes.JSON(body),
	}, nil
}

// classifySQLite marks lock contention as transient.
func classifySQLite(op string, err error) error {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && (sqlErr.Code == sqlite3.ErrBusy || sqlErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
