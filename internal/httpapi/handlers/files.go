package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vanin2004/orbis-file-storage/internal/fileholder"
	"github.com/vanin2004/orbis-file-storage/internal/metastore"
	"github.com/vanin2004/orbis-file-storage/internal/unitofwork"
)

// FileHandler implements the /files HTTP surface.
type FileHandler struct {
	deps Deps
}

// NewFileHandler builds a FileHandler bound to deps.
func NewFileHandler(deps Deps) *FileHandler {
	return &FileHandler{deps: deps}
}

const maxUploadMemory = 32 << 20 // 32MB held in memory before spilling to disk

// Create handles POST /files: a multipart form with a "file" part plus
// path, filename, file_extension and an optional comment field.
func (h *FileHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		BadRequest(w, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, "missing file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		BadRequest(w, "failed to read uploaded file")
		return
	}

	in := fileholder.CreateInput{
		Bytes:     data,
		Filename:  r.FormValue("filename"),
		Extension: r.FormValue("file_extension"),
		Path:      r.FormValue("path"),
	}
	if comment := r.FormValue("comment"); comment != "" {
		in.Comment = &comment
	}

	var meta *metastore.FileMeta
	err = unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		var err error
		meta, err = h.deps.Service.CreateFile(ctx, uow, in)
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSONOK(w, FromFileMeta(meta))
}

// List handles GET /files?limit=&offset=.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var rows []*metastore.FileMeta
	err := unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		var err error
		rows, err = h.deps.Service.ListFiles(ctx, uow, limit, offset)
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSONOK(w, toFileReadList(rows))
}

// Search handles GET /files/search?file_path=<prefix>.
func (h *FileHandler) Search(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("file_path")

	var rows []*metastore.FileMeta
	err := unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		var err error
		rows, err = h.deps.Service.SearchByPathPrefix(ctx, uow, prefix)
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSONOK(w, toFileReadList(rows))
}

// GetMeta handles GET /files/{id}/meta.
func (h *FileHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var meta *metastore.FileMeta
	err := unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		var err error
		meta, err = h.deps.Service.GetFileMeta(ctx, uow, id)
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSONOK(w, FromFileMeta(meta))
}

// GetBytes handles GET /files/{id}.
func (h *FileHandler) GetBytes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var data []byte
	err := unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		var err error
		data, err = h.deps.Service.GetFileBytes(ctx, uow, id)
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// GetByPath handles GET /files/meta/by-path?path=&filename=&file_extension=.
func (h *FileHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	filename := q.Get("filename")
	extension := q.Get("file_extension")

	var meta *metastore.FileMeta
	err := unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		var err error
		meta, err = h.deps.Service.GetFileMetaByTriple(ctx, uow, path, filename, extension)
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSONOK(w, FromFileMeta(meta))
}

// Delete handles DELETE /files/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		_, err := h.deps.Service.DeleteFile(ctx, uow, id)
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSONOK(w, map[string]string{"status": "deleted", "file_id": id})
}

// Update handles PUT and PATCH /files/{id}.
func (h *FileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body FileUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	var meta *metastore.FileMeta
	err := unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		var err error
		meta, err = h.deps.Service.UpdateFileMeta(ctx, uow, id, body.ToChanges())
		return err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSONOK(w, FromFileMeta(meta))
}

// Synchronise handles POST /files/synchronise.
func (h *FileHandler) Synchronise(w http.ResponseWriter, r *http.Request) {
	err := unitofwork.Run(r.Context(), h.deps.BlobStore, h.deps.MetaStore, func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		return h.deps.Service.SyncStorageWithDB(ctx, uow)
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSONOK(w, map[string]string{"status": "synchronised"})
}

func toFileReadList(rows []*metastore.FileMeta) []FileRead {
	out := make([]FileRead, 0, len(rows))
	for _, m := range rows {
		out = append(out, FromFileMeta(m))
	}
	return out
}

func parsePagination(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
