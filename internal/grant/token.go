package grant

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewToken returns an unguessable, URL-safe opaque token of n random
// bytes. Tokens are single-use and live only while a grant is pending.
func NewToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
