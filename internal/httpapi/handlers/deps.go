// Package handlers implements the HTTP handlers for the file storage
// API: multipart/JSON decoding, calling into fileholder.Service inside
// a single UnitOfWork per request, and mapping results back to JSON.
package handlers

import (
	"github.com/vanin2004/orbis-file-storage/internal/blobstore"
	"github.com/vanin2004/orbis-file-storage/internal/fileholder"
	"github.com/vanin2004/orbis-file-storage/internal/unitofwork"
)

// Deps bundles the long-lived collaborators every handler needs.
type Deps struct {
	BlobStore *blobstore.Store
	MetaStore unitofwork.MetaOpener
	Service   *fileholder.Service
}
