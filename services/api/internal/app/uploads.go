package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"svnglobal/internal/util"
	"svnglobal/pkg/storage"
)

// UploadResult describes a stored object.
type UploadResult struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages,omitempty"`
}

// UploadFile is the part of a multipart file the upload needs.
type UploadFile interface {
	io.Reader
	io.ReaderAt
}

var bucketTypes = map[string]map[string]string{
	storage.BucketProductImages: {
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	},
	storage.BucketTestReports: {
		"application/pdf": ".pdf",
	},
}

// MaxUploadBytes returns the size cap for a bucket, or zero for an unknown bucket.
func (a *App) MaxUploadBytes(bucket string) int64 {
	switch bucket {
	case storage.BucketProductImages:
		return a.maxImageBytes
	case storage.BucketTestReports:
		return a.maxReportBytes
	}
	return 0
}

// Upload stores a product image or test report file. The type is taken from
// the file content, not the filename.
func (a *App) Upload(ctx context.Context, bucket, filename string, file UploadFile, size int64) (UploadResult, error) {
	objects, err := a.bucket(bucket)
	if err != nil {
		return UploadResult{}, err
	}
	if size <= 0 {
		return UploadResult{}, invalid("file is empty")
	}
	if size > a.MaxUploadBytes(bucket) {
		return UploadResult{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, a.MaxUploadBytes(bucket))
	}

	head := make([]byte, 512)
	n, err := file.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	contentType := http.DetectContentType(head[:n])
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := bucketTypes[bucket][contentType]
	if !ok {
		return UploadResult{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}

	res := UploadResult{Bucket: bucket, ContentType: contentType, Size: size}
	if contentType == "application/pdf" {
		pages, err := countPDFPages(file, size)
		if err != nil {
			return UploadResult{}, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
		}
		res.Pages = pages
	}

	res.Key = buildObjectKey(a.now().Format("2006/01"), filename, ext)
	if err := objects.Put(ctx, res.Key, io.NewSectionReader(file, 0, size), size, contentType); err != nil {
		return UploadResult{}, fmt.Errorf("save file: %w", err)
	}
	url, err := objects.URL(ctx, res.Key)
	if err != nil {
		_ = objects.Delete(ctx, res.Key)
		return UploadResult{}, fmt.Errorf("object url: %w", err)
	}
	res.URL = url
	return res, nil
}

// DeleteUpload removes an object. Missing objects are not an error.
func (a *App) DeleteUpload(ctx context.Context, bucket, key string) error {
	objects, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return invalid("invalid object key")
	}
	return objects.Delete(ctx, key)
}

func (a *App) bucket(name string) (storage.ObjectStore, error) {
	if _, known := bucketTypes[name]; !known {
		return nil, ErrUnknownBucket
	}
	objects, ok := a.buckets[name]
	if !ok {
		return nil, ErrStorageUnavailable
	}
	return objects, nil
}

func countPDFPages(r io.ReaderAt, size int64) (pages int, err error) {
	// The parser panics on some truncated inputs.
	defer func() {
		if p := recover(); p != nil {
			pages, err = 0, fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, err
	}
	pages = doc.NumPage()
	if pages <= 0 {
		return 0, errors.New("pdf has no pages")
	}
	return pages, nil
}

func buildObjectKey(prefix, filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = slugify(base)
	if base == "" {
		return path.Join(prefix, util.NewID()+ext)
	}
	return path.Join(prefix, util.NewID()+"-"+base+ext)
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 48 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
