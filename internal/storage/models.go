package storage

import (
	"time"

	"github.com/mvp-joe/structscan/internal/grammar"
)

// FileRecord is one row of the files table.
type FileRecord struct {
	Path          string
	Grammar       string
	Hash          string
	SizeBytes     int64
	LastModified  time.Time
	ScannedAt     time.Time
	Salvaged      bool
	AdvisoryCount int
}

// DeclarationRow is one stored declaration.
type DeclarationRow struct {
	ID            string
	FilePath      string
	ParentID      string // empty for top-level declarations
	Kind          grammar.Kind
	Name          string
	QualifiedName string
	Trait         string
	Target        string
	Receiver      string
	Generics      []string
	Signature     string
	Doc           string
	StartByte     int
	EndByte       int
	Line          int
	EndLine       int
	Depth         int
	Salvaged      bool
	Position      int
}
