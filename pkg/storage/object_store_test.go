package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestMemoryStorePutDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(BucketProductImages)
	if err := s.Put(ctx, "a/b.png", strings.NewReader("png"), 3, "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	obj, ok := s.Object("a/b.png")
	if !ok || string(obj.Data) != "png" || obj.ContentType != "image/png" {
		t.Fatalf("unexpected object: ok=%v %+v", ok, obj)
	}
	url, err := s.URL(ctx, "a/b.png")
	if err != nil || url != "memory://product-images/a/b.png" {
		t.Fatalf("url = %q err=%v", url, err)
	}
	if err := s.Delete(ctx, "a/b.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.Object("a/b.png"); ok {
		t.Fatalf("object should be gone")
	}
}

func TestMemoryStoreRejectsShortBody(t *testing.T) {
	s := NewMemoryStore(BucketTestReports)
	if err := s.Put(context.Background(), "r.pdf", strings.NewReader("ab"), 5, "application/pdf"); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}

func TestPublicReadPolicyIsValidJSON(t *testing.T) {
	var doc struct {
		Statement []struct {
			Resource []string `json:"Resource"`
		} `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(publicReadPolicy(BucketProductImages)), &doc); err != nil {
		t.Fatalf("policy json: %v", err)
	}
	if len(doc.Statement) != 1 || doc.Statement[0].Resource[0] != "arn:aws:s3:::product-images/*" {
		t.Fatalf("unexpected policy: %+v", doc)
	}
}
