package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math/big"
	"strings"
	"time"
)

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateTicketCode returns the opaque credential scanned at check-in:
// 128 bits from crypto/rand, base32-encoded and lowercased for a compact
// string that survives URLs and QR alphanumeric mode.
func GenerateTicketCode() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// Fallback to a timestamped ID if the entropy source fails.
		return GenerateID("tkt")
	}
	return strings.ToLower(codeEncoding.EncodeToString(buf))
}

// GenerateID builds a prefixed timestamp-random identifier, e.g.
// chg_1725072000_004213.
func GenerateID(prefix string) string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("%s_%d_%06d", prefix, timestamp, randomNum.Int64())
}
