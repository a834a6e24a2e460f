package creds

import (
	"testing"

	"github.com/quantumlauncher/qlcore/internal/paths"
)

func TestSetGetDelete(t *testing.T) {
	store := NewFileStore(&paths.Root{Dir: t.TempDir()})

	if _, err := store.Get("notch", "microsoft"); err == nil {
		t.Fatalf("expected an error for an unset credential")
	}

	if err := store.Set("notch", "microsoft", "refresh-token-value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get("notch", "microsoft")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "refresh-token-value" {
		t.Errorf("got %q", got)
	}

	if err := store.Delete("notch", "microsoft"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get("notch", "microsoft"); err == nil {
		t.Errorf("expected credential to be gone after Delete")
	}
}

func TestDistinctProvidersForSameIdentifier(t *testing.T) {
	store := NewFileStore(&paths.Root{Dir: t.TempDir()})
	store.Set("notch", "microsoft", "ms-token")
	store.Set("notch", "offline", "offline-marker")

	ms, _ := store.Get("notch", "microsoft")
	offline, _ := store.Get("notch", "offline")
	if ms == offline {
		t.Errorf("the same identifier under two providers must not collide")
	}
}
