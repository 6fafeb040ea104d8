package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// File is an opened source: random access for Parquet, sequential for CSV.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// ObjectFetcher downloads a whole object from a bucket.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// Opener resolves source URIs to files. Objects are fetched through the
// configured ObjectFetcher; local paths are opened directly.
type Opener struct {
	objects ObjectFetcher
}

// NewOpener creates an Opener. objects may be nil when only local paths are used.
func NewOpener(objects ObjectFetcher) *Opener {
	return &Opener{objects: objects}
}

// Open opens uri. A missing or unreadable source wraps ffmm.ErrSourceNotFound.
func (o *Opener) Open(ctx context.Context, uri string) (File, error) {
	if bucket, key, ok := parseS3URI(uri); ok {
		if o.objects == nil {
			return nil, fmt.Errorf("%s: no object store configured: %w", uri, ffmm.ErrInvalidConfig)
		}
		data, err := o.objects.Fetch(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		return &memFile{Reader: bytes.NewReader(data)}, nil
	}

	path := strings.TrimPrefix(uri, "file://")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%s: %w", path, ffmm.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("open %s: %w: %w", path, ffmm.ErrSourceNotFound, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w: %w", path, ffmm.ErrSourceNotFound, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory: %w", path, ffmm.ErrSourceNotFound)
	}
	return f, nil
}

// parseS3URI splits s3://bucket/key. ok is false for anything else.
func parseS3URI(uri string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", false
	}
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}

type memFile struct {
	*bytes.Reader
}

func (m *memFile) Close() error { return nil }
