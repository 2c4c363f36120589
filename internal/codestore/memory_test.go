package codestore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, Key("13800138000"), "123456", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(ctx, Key("13800138000"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "123456" {
		t.Errorf("Expected 123456, got %s", got)
	}

	if err := s.Delete(ctx, Key("13800138000")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, Key("13800138000")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "sms:code:x", "654321", time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := s.Get(ctx, "sms:code:x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestMemoryStore_MissingKey(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.Get(context.Background(), "sms:code:none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestKey(t *testing.T) {
	if Key("13800138000") != "sms:code:13800138000" {
		t.Errorf("Unexpected key format: %s", Key("13800138000"))
	}
}
