package metastore

import "time"

// FileMeta is the persistent record for one blob: one row per stored
// file, keyed by id, with a uniqueness invariant on (Path, Filename,
// Extension).
//
// Struct tags drive github.com/go-playground/validator/v10 validation
// at the FileHolderService boundary before any row is ever written.
type FileMeta struct {
	ID string `db:"id" validate:"required,uuid4"`

	// Filename is the stem only; no extension and no path separators.
	Filename string `db:"filename" validate:"required,min=1,max=255,filename_charset"`

	// Extension carries no leading dot. Empty is valid (no extension).
	Extension string `db:"extension" validate:"max=10,extension_charset"`

	// Path is a purely logical namespace, not mapped to any disk
	// layout, and must start and end with '/'.
	Path string `db:"path" validate:"required,min=1,max=1024,path_format"`

	Size int64 `db:"size" validate:"gte=0"`

	Comment *string `db:"comment"`

	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// Changes is the subset of mutable fields accepted by UpdateFileMeta.
// A nil pointer leaves the corresponding column untouched; Comment may
// be explicitly cleared by pointing at an empty string.
type Changes struct {
	Filename  *string
	Extension *string
	Path      *string
	Comment   *string
}

// IsEmpty reports whether no field in Changes is set.
func (c Changes) IsEmpty() bool {
	return c.Filename == nil && c.Extension == nil && c.Path == nil && c.Comment == nil
}
