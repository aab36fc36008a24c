package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
)

// HashIP returns the salted hash of a request's network origin. Only the
// hash is ever stored, so bans can be correlated without keeping raw
// addresses.
func HashIP(salt, remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// RealIP middleware may already have stripped the port.
		host = remoteAddr
	}
	if host == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(salt + host))
	return hex.EncodeToString(sum[:])
}
