package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key joins parts with ':'.
func Key(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}

// HashKey shortens free text (headlines, prompts) into a stable key part.
func HashKey(text string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:8])
}
