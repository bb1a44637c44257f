package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"svnglobal/pkg/storage"
)

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
}

// minimalPDF builds a valid PDF with the given number of blank pages.
func minimalPDF(pages int) []byte {
	var kids []string
	for i := 0; i < pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
	}
	for i := 0; i < pages; i++ {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestUploadProductImage(t *testing.T) {
	ctx := context.Background()
	images := storage.NewMemoryStore(storage.BucketProductImages)
	a, err := New(Config{Images: images, Reports: storage.NewMemoryStore(storage.BucketTestReports)})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	data := pngBytes()
	res, err := a.Upload(ctx, storage.BucketProductImages, "Mica Sheet (front).JPG", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.ContentType != "image/png" || !strings.HasSuffix(res.Key, "-mica-sheet-front.png") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.URL != "memory://product-images/"+res.Key {
		t.Fatalf("unexpected url %q", res.URL)
	}
	obj, ok := images.Object(res.Key)
	if !ok || !bytes.Equal(obj.Data, data) || obj.ContentType != "image/png" {
		t.Fatalf("object not stored: %+v", obj)
	}

	if err := a.DeleteUpload(ctx, storage.BucketProductImages, res.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := images.Object(res.Key); ok {
		t.Fatalf("expected object deleted")
	}
}

func TestUploadTestReportPDF(t *testing.T) {
	ctx := context.Background()
	reports := storage.NewMemoryStore(storage.BucketTestReports)
	a, err := New(Config{Reports: reports})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	data := minimalPDF(2)
	res, err := a.Upload(ctx, storage.BucketTestReports, "report.pdf", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("upload pdf: %v", err)
	}
	if res.Pages != 2 || res.ContentType != "application/pdf" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, ok := reports.Object(res.Key); !ok {
		t.Fatalf("pdf not stored")
	}
}

func TestUploadRejections(t *testing.T) {
	ctx := context.Background()
	a, err := New(Config{
		Images:        storage.NewMemoryStore(storage.BucketProductImages),
		Reports:       storage.NewMemoryStore(storage.BucketTestReports),
		MaxImageBytes: 32,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	brokenPDF := []byte("%PDF-1.4\nnot really a pdf\n")
	tests := []struct {
		name   string
		bucket string
		data   []byte
		want   error
	}{
		{name: "unknown bucket", bucket: "avatars", data: pngBytes(), want: ErrUnknownBucket},
		{name: "image too large", bucket: storage.BucketProductImages, data: pngBytes(), want: ErrFileTooLarge},
		{name: "pdf into image bucket", bucket: storage.BucketProductImages, data: []byte("%PDF-1.4\n"), want: ErrUnsupportedMedia},
		{name: "html disguised as report", bucket: storage.BucketTestReports, data: []byte("<html><body>hi</body></html>"), want: ErrUnsupportedMedia},
		{name: "broken pdf", bucket: storage.BucketTestReports, data: brokenPDF, want: ErrUnsupportedMedia},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Upload(ctx, tc.bucket, "file.bin", bytes.NewReader(tc.data), int64(len(tc.data)))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDeleteUploadRejectsTraversal(t *testing.T) {
	a, err := New(Config{Images: storage.NewMemoryStore(storage.BucketProductImages)})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	var vErr *ValidationError
	for _, key := range []string{"", "../secret", "a/../../b", "a//b"} {
		if err := a.DeleteUpload(context.Background(), storage.BucketProductImages, key); !errors.As(err, &vErr) {
			t.Fatalf("key %q: expected validation error, got %v", key, err)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Mica Sheet (front)": "mica-sheet-front",
		"__":                 "",
		"ÄBC-12":             "bc-12",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
