package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/structscan/internal/scanner"
)

var declarationColumns = []string{
	"id", "file_path", "parent_id", "kind", "name", "qualified_name",
	"trait", "target", "receiver", "generics", "signature", "doc",
	"start_byte", "end_byte", "line", "end_line", "depth", "salvaged", "position",
}

// WriteFile replaces everything stored for rec.Path with the catalog's
// declarations, in one transaction.
func (s *Store) WriteFile(ctx context.Context, rec *FileRecord, cat *scanner.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Cascades to the file's declarations.
	if _, err := sq.Delete("files").Where(sq.Eq{"file_path": rec.Path}).RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to clear %s: %w", rec.Path, err)
	}

	scannedAt := rec.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	_, err = sq.Insert("files").
		Columns("file_path", "grammar", "file_hash", "size_bytes", "last_modified", "scanned_at", "salvaged", "advisory_count").
		Values(
			rec.Path,
			rec.Grammar,
			rec.Hash,
			rec.SizeBytes,
			rec.LastModified.UTC().Format(time.RFC3339Nano),
			scannedAt.UTC().Format(time.RFC3339),
			cat.Salvaged(),
			len(cat.Advisories),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", rec.Path, err)
	}

	// Build the statement once with squirrel and reuse it for every row.
	placeholders := make([]any, len(declarationColumns))
	sqlStr, _, err := sq.Insert("declarations").Columns(declarationColumns...).Values(placeholders...).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	ids := make(map[*scanner.Declaration]string)
	position := 0
	cat.Walk(func(d *scanner.Declaration, parents []*scanner.Declaration) bool {
		id := uuid.NewString()
		ids[d] = id

		var parentID any
		if len(parents) > 0 {
			parentID = ids[parents[len(parents)-1]]
		}

		path := append(append([]*scanner.Declaration{}, parents...), d)
		_, err = stmt.ExecContext(ctx,
			id,
			rec.Path,
			parentID,
			string(d.Kind),
			d.Name,
			scanner.QualifiedName(path),
			d.Trait,
			d.Target,
			d.Receiver,
			strings.Join(d.Generics, ","),
			d.Signature,
			d.Doc,
			d.Span.Start,
			d.Span.End,
			d.Line,
			d.EndLine,
			len(parents),
			d.Salvaged,
			position,
		)
		if err != nil {
			err = fmt.Errorf("failed to insert declaration %s: %w", d.Name, err)
			return false
		}
		position++
		return true
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", rec.Path, err)
	}
	return nil
}

// DeleteFile removes a file and its declarations. Deleting a file that was
// never stored is not an error.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	_, err := sq.Delete("files").Where(sq.Eq{"file_path": path}).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}
