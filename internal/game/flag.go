package game

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const maxFlagLength = 500

var flagPattern = regexp.MustCompile(`^[A-Za-z0-9_\-{}\[\]@:.]+$`)

// ValidateFlagFormat rejects flags that are empty, longer than 500
// characters, or outside the allowed character set. Runs before any
// hashing so malformed input never reaches the digest path.
func ValidateFlagFormat(flag string) error {
	if flag == "" || len(flag) > maxFlagLength {
		return ErrInvalidFormat
	}
	if strings.ContainsAny(flag, `'"<>&|`) {
		return ErrInvalidFormat
	}
	if !flagPattern.MatchString(flag) {
		return ErrInvalidFormat
	}
	return nil
}

// Hasher computes salted flag digests. The salt comes from configuration,
// never from source.
type Hasher struct {
	salt []byte
}

func NewHasher(salt string) Hasher {
	return Hasher{salt: []byte(salt)}
}

// Hash returns the hex HMAC-SHA256 digest of flag under the salt.
func (h Hasher) Hash(flag string) string {
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(flag))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches reports whether flag hashes to storedHash.
func (h Hasher) Matches(flag, storedHash string) bool {
	return hmac.Equal([]byte(h.Hash(flag)), []byte(storedHash))
}
