package port

import "context"

// ArchiveStore persists rendered artifacts, such as the workbook snapshot
// taken when a report is submitted. Paths are relative to the store root.
type ArchiveStore interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
}
