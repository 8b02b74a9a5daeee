// Package storage persists extracted news records: file exports for the
// CLI and a MongoDB archive for the service.
package storage

import (
	"github.com/IshaanNene/newsgoat/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of records.
	Store(recs []*types.Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// csvHeader is the fixed CSV column order.
var csvHeader = []string{
	"id", "title", "description", "category", "created_at",
	"url", "image_url", "provider", "summary", "content",
}

func csvRow(rec *types.Record) []string {
	return []string{
		rec.ID, rec.Title, rec.Description, string(rec.Category), rec.CreatedAt,
		rec.URL, rec.ImageURL, rec.Provider, rec.Summary, rec.Content,
	}
}
