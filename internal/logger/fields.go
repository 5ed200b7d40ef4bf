package logger

import "log/slog"

// Standard field keys for structured logging across the blob store,
// metadata store and HTTP surface.
const (
	KeyRequestID = "request_id"
	KeyBlobID    = "blob_id"
	KeyPath      = "path"
	KeyFilename  = "filename"
	KeyExtension = "extension"
	KeySize      = "size"
	KeyMethod    = "method"
	KeyStatus    = "status"
	KeyDuration  = "duration_ms"
	KeyError     = "error"
)

// BlobID returns a slog.Attr for a blob identifier.
func BlobID(id string) slog.Attr {
	return slog.String(KeyBlobID, id)
}

// Path returns a slog.Attr for a virtual path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Err returns a slog.Attr for an error, or a no-op Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
