package handlers

import (
	"testing"

	"github.com/google/uuid"
)

func TestExtractUUIDFromPath(t *testing.T) {
	id := uuid.New()

	got, err := extractUUIDFromPath("/api/orders/"+id.String(), "/api/orders/")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}

	got, err = extractUUIDFromPath("/api/admin/orders/"+id.String()+"/status", "/api/admin/orders/")
	if err != nil {
		t.Fatalf("expected success with suffix, got %v", err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}

	if _, err := extractUUIDFromPath("/api/orders/not-a-uuid", "/api/orders/"); err == nil {
		t.Fatal("expected error for invalid UUID")
	}
	if _, err := extractUUIDFromPath("/other/path", "/api/orders/"); err == nil {
		t.Fatal("expected error for wrong prefix")
	}
}

func TestExtractCodeFromPath(t *testing.T) {
	code, err := extractCodeFromPath("/api/admin/promo-codes/SALE10", "/api/admin/promo-codes/")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if code != "SALE10" {
		t.Fatalf("expected SALE10, got %q", code)
	}

	if _, err := extractCodeFromPath("/api/admin/promo-codes/", "/api/admin/promo-codes/"); err == nil {
		t.Fatal("expected error for empty code")
	}
	if _, err := extractCodeFromPath("/api/admin/promo-codes/SALE10/extra", "/api/admin/promo-codes/"); err == nil {
		t.Fatal("expected error for trailing segment")
	}
}
