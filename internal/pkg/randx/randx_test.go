package randx

import (
	"strings"
	"testing"
	"time"
)

func TestGuestIDIsNamespacedAndUnique(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	seen := make(map[string]struct{})

	for i := 0; i < 500; i++ {
		id, err := GuestID(now)
		if err != nil {
			t.Fatalf("GuestID: %v", err)
		}
		if !strings.HasPrefix(id, "guest-1700000000000-") {
			t.Fatalf("unexpected guest id %q", id)
		}
		if !IsGuestID(id) {
			t.Fatalf("generated id %q rejected by IsGuestID", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate guest id %q at same timestamp", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIsGuestID(t *testing.T) {
	valid := []string{"guest-17000", "guest-1700000000000-aB3xYz", "guest-bob_1"}
	invalid := []string{
		"",
		"u1",
		"guest-",
		"Guest-17000",
		"guest-17000<script>",
		"guest-" + strings.Repeat("a", MaxGuestIDLength),
	}

	for _, id := range valid {
		if !IsGuestID(id) {
			t.Errorf("IsGuestID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsGuestID(id) {
			t.Errorf("IsGuestID(%q) = true, want false", id)
		}
	}
}

func TestChannelIDUnique(t *testing.T) {
	if ChannelID() == ChannelID() {
		t.Fatal("ChannelID returned the same id twice")
	}
}
