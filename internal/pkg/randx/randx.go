/*
Package randx generates identifiers: signaling channel ids and namespaced
guest participant ids.

Guest ids always carry GuestIDPrefix, and authenticated user ids never do, so
the two participant classes cannot collide inside one room roster.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for random suffixes.
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 alphabet.
	Base62Len = int64(len(Base62Chars))

	// GuestIDPrefix namespaces every guest participant id.
	GuestIDPrefix = "guest-"

	// GuestIDSuffixLength is the length of the random part appended after the timestamp.
	GuestIDSuffixLength = 6

	// MaxGuestIDLength bounds client-supplied guest ids.
	MaxGuestIDLength = 64
)

// base62 returns n cryptographically random Base62 characters.
func base62(n int) (string, error) {
	out := make([]byte, n)

	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		out[i] = Base62Chars[num.Int64()]
	}

	return string(out), nil
}

// GuestID returns a fresh guest id of the form guest-<unix millis>-<random>.
func GuestID(now time.Time) (string, error) {
	suffix, err := base62(GuestIDSuffixLength)
	if err != nil {
		return "", fmt.Errorf("guest id: %w", err)
	}

	return GuestIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix, nil
}

// IsGuestID reports whether id lies in the guest namespace and is acceptable
// as a client-supplied guest id: prefixed, bounded, and made of URL-safe runes.
func IsGuestID(id string) bool {
	if !strings.HasPrefix(id, GuestIDPrefix) || len(id) > MaxGuestIDLength {
		return false
	}

	rest := id[len(GuestIDPrefix):]
	if rest == "" {
		return false
	}

	for _, r := range rest {
		if r == '-' || r == '_' || strings.ContainsRune(Base62Chars, r) {
			continue
		}
		return false
	}

	return true
}

// ChannelID returns a new signaling channel identifier.
func ChannelID() string {
	return uuid.NewString()
}
