package artifacts

import "context"

// Remote is a publicly readable space artifacts are uploaded to, addressed
// by the same file names as the DiskStore.
type Remote interface {
	Exists(ctx context.Context, hash string, kind Kind) (bool, error)
	// Upload returns the public url of the uploaded artifact.
	Upload(ctx context.Context, hash string, kind Kind, data []byte) (string, error)
	URL(hash string, kind Kind) string
}
