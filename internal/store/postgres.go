package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps every collection in the resume_documents table, one
// jsonb body per (collection, id).
type PostgresStore struct {
	db    Querier
	names Names
}

func NewPostgresStore(db Querier, names Names) *PostgresStore {
	return &PostgresStore{db: db, names: names}
}

func (s *PostgresStore) Create(ctx context.Context, c Collection, doc *models.ResumeDocument) error {
	coll, body, err := s.prepare(c, doc)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO resume_documents (collection, id, status, upload_date, body)
		 VALUES ($1, $2, $3, $4, $5)`,
		coll, doc.ID, string(doc.Status), doc.UploadDate, body,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s/%s", ErrConflict, coll, doc.ID)
		}
		return classify("create document", err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, c Collection, id string) (*models.ResumeDocument, error) {
	coll, err := s.names.physical(c)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = s.db.QueryRow(ctx,
		`SELECT body FROM resume_documents WHERE collection = $1 AND id = $2`,
		coll, id,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("read document", err)
	}
	return decode(body)
}

func (s *PostgresStore) Upsert(ctx context.Context, c Collection, doc *models.ResumeDocument) error {
	coll, body, err := s.prepare(c, doc)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO resume_documents (collection, id, status, upload_date, body)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (collection, id) DO UPDATE
		 SET status = EXCLUDED.status,
		     upload_date = EXCLUDED.upload_date,
		     body = EXCLUDED.body,
		     updated_at = now()`,
		coll, doc.ID, string(doc.Status), doc.UploadDate, body,
	)
	if err != nil {
		return classify("upsert document", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, c Collection, opts QueryOptions) ([]*models.ResumeDocument, error) {
	coll, err := s.names.physical(c)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT body FROM resume_documents
		 WHERE collection = $1 AND ($2 = '' OR status = $2)
		 ORDER BY upload_date DESC, id
		 LIMIT $3`,
		coll, string(opts.Status), opts.limit(),
	)
	if err != nil {
		return nil, classify("query documents", err)
	}
	defer rows.Close()

	docs := []*models.ResumeDocument{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decode(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate documents", err)
	}
	return docs, nil
}

func (s *PostgresStore) Delete(ctx context.Context, c Collection, id string) error {
	coll, err := s.names.physical(c)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `DELETE FROM resume_documents WHERE collection = $1 AND id = $2`, coll, id)
	if err != nil {
		return classify("delete document", err)
	}
	return nil
}

func (s *PostgresStore) prepare(c Collection, doc *models.ResumeDocument) (string, []byte, error) {
	coll, err := s.names.physical(c)
	if err != nil {
		return "", nil, err
	}
	if doc == nil || doc.ID == "" {
		return "", nil, errors.New("document id required")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("marshal document: %w", err)
	}
	return coll, body, nil
}

// classify wraps err with ErrTransient when retrying can help: connection
// failures, serialization conflicts, deadlocks and server shutdowns.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "53300", "57P01", "57P02", "57P03":
			return true
		}
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
