package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vanin2004/orbis-file-storage/internal/kerrors"
	"github.com/vanin2004/orbis-file-storage/internal/metastore"
)

// Problem is an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&Problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func BadRequest(w http.ResponseWriter, detail string) { WriteProblem(w, http.StatusBadRequest, "Bad Request", detail) }

func Unauthorized(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

func Forbidden(w http.ResponseWriter, detail string) { WriteProblem(w, http.StatusForbidden, "Forbidden", detail) }

func NotFound(w http.ResponseWriter, detail string) { WriteProblem(w, http.StatusNotFound, "Not Found", detail) }

func Conflict(w http.ResponseWriter, detail string) { WriteProblem(w, http.StatusConflict, "Conflict", detail) }

func UnprocessableEntity(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", detail)
}

func ServiceUnavailable(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", detail)
}

func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteJSONOK(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusOK, data) }

// WriteError maps a kerrors.Code to the RFC 7807 response the spec's
// error table prescribes.
func WriteError(w http.ResponseWriter, err error) {
	kerr, ok := err.(*kerrors.Error)
	if !ok {
		InternalServerError(w, err.Error())
		return
	}

	switch kerr.Code {
	case kerrors.Validation:
		BadRequest(w, kerr.Message)
	case kerrors.NotFound:
		NotFound(w, kerr.Message)
	case kerrors.AlreadyExists:
		Conflict(w, kerr.Message)
	case kerrors.LockTimeout, kerrors.BlobStoreUnavailable:
		ServiceUnavailable(w, kerr.Error())
	case kerrors.BlobWriteFailed, kerrors.MetaStoreError:
		InternalServerError(w, kerr.Error())
	default:
		InternalServerError(w, kerr.Error())
	}
}

// FileRead is the JSON representation of a FileMeta returned to
// clients.
type FileRead struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename"`
	FileExtension string     `json:"file_extension"`
	Path          string     `json:"path"`
	Size          int64      `json:"size"`
	Comment       *string    `json:"comment"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// FromFileMeta converts a metastore.FileMeta into its wire
// representation.
func FromFileMeta(m *metastore.FileMeta) FileRead {
	return FileRead{
		ID:            m.ID,
		Filename:      m.Filename,
		FileExtension: m.Extension,
		Path:          m.Path,
		Size:          m.Size,
		Comment:       m.Comment,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FileUpdate is the JSON body accepted by PUT/PATCH /files/{id}. Every
// field is optional; only present fields are applied.
type FileUpdate struct {
	Filename      *string `json:"filename"`
	FileExtension *string `json:"file_extension"`
	Path          *string `json:"path"`
	Comment       *string `json:"comment"`
}

// ToChanges converts a FileUpdate into metastore.Changes.
func (u FileUpdate) ToChanges() metastore.Changes {
	return metastore.Changes{
		Filename:  u.Filename,
		Extension: u.FileExtension,
		Path:      u.Path,
		Comment:   u.Comment,
	}
}
