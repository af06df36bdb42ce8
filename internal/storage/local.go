// Package storage persists uploaded account documents.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// DefaultMaxBytes caps the size of a single uploaded file.
const DefaultMaxBytes int64 = 5 << 20

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("only image or pdf files are allowed")
)

// allowed maps sniffed content types to the extension used on disk.
var allowed = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Uploader stores one uploaded file and returns the URL it is served at.
// Remove deletes a file by the URL Save returned.
type Uploader interface {
	Save(ctx context.Context, field string, fh *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, url string) error
}

var errForeignURL = errors.New("url was not issued by this store")

// Local writes uploads under Dir and builds URLs from BaseURL.
type Local struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

func NewLocal(dir, baseURL string, maxBytes int64) (*Local, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, oops.Code("UPLOAD_DIR").With("dir", dir).Wrap(err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes}, nil
}

// Save checks the size and sniffed content type of the file, then copies
// it to a uuid-named file.  The field name prefixes the stored name.
func (l *Local) Save(ctx context.Context, field string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > l.MaxBytes {
		return "", fmt.Errorf("%s: %w", field, ErrFileTooLarge)
	}
	src, err := fh.Open()
	if err != nil {
		return "", oops.Code("UPLOAD_READ").With("field", field).Wrap(err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", oops.Code("UPLOAD_READ").With("field", field).Wrap(err)
	}
	head = head[:n]
	ctype := http.DetectContentType(head)
	if i := strings.IndexByte(ctype, ';'); i >= 0 {
		ctype = ctype[:i]
	}
	ext, ok := allowed[ctype]
	if !ok {
		return "", fmt.Errorf("%s: %w", field, ErrUnsupportedType)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := field + "-" + uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(l.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", oops.Code("UPLOAD_WRITE").With("field", field).Wrap(err)
	}
	written, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), io.LimitReader(src, l.MaxBytes)))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > l.MaxBytes {
		err = fmt.Errorf("%s: %w", field, ErrFileTooLarge)
	}
	if err != nil {
		_ = os.Remove(filepath.Join(l.Dir, name))
		if errors.Is(err, ErrFileTooLarge) {
			return "", err
		}
		return "", oops.Code("UPLOAD_WRITE").With("field", field).Wrap(err)
	}
	return l.BaseURL + "/" + name, nil
}

// Remove deletes the file behind url.  A file that is already gone is not
// an error; a url outside BaseURL is.
func (l *Local) Remove(_ context.Context, url string) error {
	name := strings.TrimPrefix(url, l.BaseURL+"/")
	if name == url || name == "" || filepath.Base(name) != name {
		return oops.Code("UPLOAD_REMOVE").With("url", url).Wrap(errForeignURL)
	}
	if err := os.Remove(filepath.Join(l.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return oops.Code("UPLOAD_REMOVE").With("url", url).Wrap(err)
	}
	return nil
}
