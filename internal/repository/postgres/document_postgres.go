package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"docarchive/internal/database"
	"docarchive/internal/model"
	"docarchive/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
// A nil db is accepted; every call then fails with database.ErrNotInitialized.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts the document row and its file rows in one transaction.
func (r *DocumentPostgres) Create(ctx context.Context, meta model.Metadata, files []repository.NewFile, ownerID int64) (int64, error) {
	const qDoc = `
		INSERT INTO documents (recipient, origin, date, place, reason, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	const qFile = `
		INSERT INTO document_files (document_id, filename, original_name, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
	`

	var id int64
	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, qDoc,
			meta.Recipient,
			meta.Origin,
			meta.Date,
			meta.Place,
			nullString(meta.Reason),
			nullID(ownerID),
		)
		if err := row.Scan(&id); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}

		for _, f := range files {
			if _, err := tx.ExecContext(ctx, qFile,
				id,
				f.Filename,
				f.OriginalName,
				f.MimeType,
				f.SizeBytes,
			); err != nil {
				return fmt.Errorf("insert document file %s: %w", f.Filename, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// List returns filtered documents with their files, ordered by date and ID descending.
func (r *DocumentPostgres) List(ctx context.Context, f model.ListFilter) ([]model.DocumentSummary, error) {
	if r.db == nil {
		return nil, database.ErrNotInitialized
	}

	where, args := listConditions(f)
	q := `
		SELECT d.id, d.recipient, d.origin, d.date, d.place, d.reason,
		       f.id, f.filename, f.original_name
		FROM documents d
		LEFT JOIN document_files f ON f.document_id = d.id
		` + where + `
		ORDER BY d.date DESC, d.id DESC, f.id ASC
	`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.DocumentSummary, 0)
	for rows.Next() {
		var (
			d            model.DocumentSummary
			reason       sql.NullString
			fileID       sql.NullInt64
			filename     sql.NullString
			originalName sql.NullString
		)
		if err := rows.Scan(
			&d.ID,
			&d.Recipient,
			&d.Origin,
			&d.Date,
			&d.Place,
			&reason,
			&fileID,
			&filename,
			&originalName,
		); err != nil {
			return nil, err
		}

		// Rows of one document are adjacent thanks to the ORDER BY.
		if n := len(items); n == 0 || items[n-1].ID != d.ID {
			if reason.Valid {
				s := reason.String
				d.Reason = &s
			}
			d.Files = make([]model.FileRef, 0)
			items = append(items, d)
		}
		if fileID.Valid {
			cur := &items[len(items)-1]
			cur.Files = append(cur.Files, model.FileRef{
				ID:           fileID.Int64,
				Filename:     filename.String,
				OriginalName: originalName.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Update overwrites the metadata of a document in a single statement.
func (r *DocumentPostgres) Update(ctx context.Context, id int64, meta model.Metadata) error {
	if r.db == nil {
		return database.ErrNotInitialized
	}

	const q = `
		UPDATE documents
		SET recipient = $1, origin = $2, date = $3, place = $4, reason = $5
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, q,
		meta.Recipient,
		meta.Origin,
		meta.Date,
		meta.Place,
		nullString(meta.Reason),
		id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete reads the document's stored filenames and deletes the document row
// in one transaction; document_files rows go with it through ON DELETE CASCADE.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) ([]string, error) {
	const qFiles = `SELECT filename FROM document_files WHERE document_id = $1 ORDER BY id`
	const qDelete = `DELETE FROM documents WHERE id = $1`

	var filenames []string
	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, qFiles, id)
		if err != nil {
			return fmt.Errorf("select document files: %w", err)
		}
		defer rows.Close()

		filenames = make([]string, 0)
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			filenames = append(filenames, name)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		res, err := tx.ExecContext(ctx, qDelete, id)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filenames, nil
}

func listConditions(f model.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Recipient != "" {
		add("d.recipient ILIKE $%d", "%"+escapeLike(f.Recipient)+"%")
	}
	if f.Place != "" {
		add("d.place ILIKE $%d", "%"+escapeLike(f.Place)+"%")
	}
	if f.DateFrom != nil {
		add("d.date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("d.date <= $%d", *f.DateTo)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}
