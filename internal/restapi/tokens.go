package restapi

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// generateAuthToken mints an opaque bearer secret, following the teacher's
// random-token generation idiom (internal/auth/manager.go).
func generateAuthToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(buf), nil
}
