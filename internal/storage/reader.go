package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fortio.org/safecast"
	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/indexer"
)

// Query filters declarations. Zero fields match everything.
type Query struct {
	Name     string       // exact name, or the target of an implementation
	Prefix   string       // name prefix, ASCII case-insensitive
	Kind     grammar.Kind // exact kind
	FilePath string
	Limit    uint64
}

// Find returns the declarations matching q ordered by file and position.
func (s *Store) Find(ctx context.Context, q Query) ([]*DeclarationRow, error) {
	b := sq.Select(declarationColumns...).From("declarations")

	if q.Name != "" {
		b = b.Where(sq.Or{sq.Eq{"name": q.Name}, sq.Eq{"target": q.Name}})
	}
	if q.Prefix != "" {
		b = b.Where(`name LIKE ? ESCAPE '\'`, escapeLike(q.Prefix)+"%")
	}
	if q.Kind != "" {
		b = b.Where(sq.Eq{"kind": string(q.Kind)})
	}
	if q.FilePath != "" {
		b = b.Where(sq.Eq{"file_path": q.FilePath})
	}
	if q.Limit > 0 {
		b = b.Limit(q.Limit)
	}

	rows, err := b.OrderBy("file_path", "position").RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query declarations: %w", err)
	}
	defer rows.Close()

	return scanDeclarations(rows)
}

// FindByName returns declarations with the given name. Implementation
// blocks match on their target type.
func (s *Store) FindByName(ctx context.Context, name string) ([]*DeclarationRow, error) {
	return s.Find(ctx, Query{Name: name})
}

// FindByKind returns every declaration of the given kind.
func (s *Store) FindByKind(ctx context.Context, kind grammar.Kind) ([]*DeclarationRow, error) {
	return s.Find(ctx, Query{Kind: kind})
}

// Children returns the direct children of a declaration in source order.
func (s *Store) Children(ctx context.Context, id string) ([]*DeclarationRow, error) {
	rows, err := sq.Select(declarationColumns...).
		From("declarations").
		Where(sq.Eq{"parent_id": id}).
		OrderBy("position").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query children of %s: %w", id, err)
	}
	defer rows.Close()

	return scanDeclarations(rows)
}

// File returns one file record, or (nil, nil) if it is not stored.
func (s *Store) File(ctx context.Context, path string) (*FileRecord, error) {
	rows, err := selectFiles().Where(sq.Eq{"file_path": path}).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}
	defer rows.Close()

	files, err := scanFiles(rows)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return files[0], nil
}

// Files lists every stored file ordered by path.
func (s *Store) Files(ctx context.Context) ([]*FileRecord, error) {
	rows, err := selectFiles().OrderBy("file_path").RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query all files: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// FileStates returns the hash and mtime of every stored file, for change
// detection.
func (s *Store) FileStates(ctx context.Context) (map[string]indexer.FileState, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	states := make(map[string]indexer.FileState, len(files))
	for _, f := range files {
		states[f.Path] = indexer.FileState{Hash: f.Hash, ModTime: f.LastModified}
	}
	return states, nil
}

// Counts returns the number of stored files and declarations.
func (s *Store) Counts(ctx context.Context) (files, declarations int, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM files), (SELECT COUNT(*) FROM declarations)",
	).Scan(&files, &declarations)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return files, declarations, nil
}

func selectFiles() sq.SelectBuilder {
	return sq.Select(
		"file_path", "grammar", "file_hash", "size_bytes",
		"last_modified", "scanned_at", "salvaged", "advisory_count",
	).From("files")
}

func scanFiles(rows *sql.Rows) ([]*FileRecord, error) {
	var out []*FileRecord
	for rows.Next() {
		f := &FileRecord{}
		var lastModified, scannedAt string
		var advisories int64
		if err := rows.Scan(
			&f.Path, &f.Grammar, &f.Hash, &f.SizeBytes,
			&lastModified, &scannedAt, &f.Salvaged, &advisories,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		f.LastModified, _ = time.Parse(time.RFC3339Nano, lastModified)
		f.ScannedAt, _ = time.Parse(time.RFC3339, scannedAt)

		n, err := safecast.Conv[int](advisories)
		if err != nil {
			return nil, fmt.Errorf("advisory count of %s: %w", f.Path, err)
		}
		f.AdvisoryCount = n
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanDeclarations(rows *sql.Rows) ([]*DeclarationRow, error) {
	var out []*DeclarationRow
	for rows.Next() {
		d := &DeclarationRow{}
		var parentID sql.NullString
		var kind, generics string
		var ints [6]int64

		if err := rows.Scan(
			&d.ID, &d.FilePath, &parentID, &kind, &d.Name, &d.QualifiedName,
			&d.Trait, &d.Target, &d.Receiver, &generics, &d.Signature, &d.Doc,
			&ints[0], &ints[1], &ints[2], &ints[3], &ints[4], &d.Salvaged, &ints[5],
		); err != nil {
			return nil, fmt.Errorf("failed to scan declaration row: %w", err)
		}

		d.ParentID = parentID.String
		d.Kind = grammar.Kind(kind)
		d.Generics = []string{}
		if generics != "" {
			d.Generics = strings.Split(generics, ",")
		}

		targets := []*int{&d.StartByte, &d.EndByte, &d.Line, &d.EndLine, &d.Depth, &d.Position}
		for i, v := range ints {
			n, err := safecast.Conv[int](v)
			if err != nil {
				return nil, fmt.Errorf("declaration %s: %w", d.ID, err)
			}
			*targets[i] = n
		}

		out = append(out, d)
	}
	return out, rows.Err()
}

// escapeLike makes the LIKE wildcards in a user prefix match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
