package account

import "testing"

func TestOfflineUUIDIsDeterministic(t *testing.T) {
	a := OfflineUUID("Notch")
	b := OfflineUUID("Notch")
	if a != b {
		t.Errorf("expected the same username to derive the same offline UUID, got %s and %s", a, b)
	}

	other := OfflineUUID("Herobrine")
	if a == other {
		t.Errorf("expected distinct usernames to derive distinct offline UUIDs")
	}
}

func TestCreateOfflineSetsProvider(t *testing.T) {
	ref := CreateOffline("Steve")
	if ref.Provider != "offline" {
		t.Errorf("expected provider %q, got %q", "offline", ref.Provider)
	}
	if ref.UUID == "" {
		t.Errorf("expected a derived UUID, got empty string")
	}
}
