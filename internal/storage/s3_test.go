package storage

import (
	"context"
	"testing"
)

func TestNewS3StoreCustomEndpoint(t *testing.T) {
	// Client construction must succeed offline; only operations talk to
	// the backend.
	store, err := NewS3Store(context.Background(), S3Options{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "minioadmin",
		AccessKeySecret: "minioadmin",
		DisableHTTPS:    true,
	})
	if err != nil {
		t.Fatalf("NewS3Store failed: %v", err)
	}
	if store.bucket != "test-bucket" {
		t.Errorf("bucket = %q, want test-bucket", store.bucket)
	}
	if store.client == nil {
		t.Error("client should be constructed")
	}
}

func TestNewS3StoreDefaultChain(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Options{
		Region: "eu-west-1",
		Bucket: "prod-bucket",
	})
	if err != nil {
		t.Fatalf("NewS3Store failed: %v", err)
	}
	if store.bucket != "prod-bucket" {
		t.Errorf("bucket = %q, want prod-bucket", store.bucket)
	}
}
