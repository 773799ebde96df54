package resolve

import (
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"strings"
)

const (
	idPrefix     = "comp_"
	idNameLen    = 20
	idHashLength = 8
)

// GenerateID derives a stable identifier from a company name:
// "comp_" + the first 20 normalized characters (anything outside [a-z0-9]
// becomes "_") + "_" + the first 8 hex digits of the MD5 of the normalized name.
// The hash keeps companies whose truncated prefixes coincide apart.
func GenerateID(name string) string {
	normalized := NormalizeName(name)

	sum := md5.Sum([]byte(normalized)) //nolint:gosec
	hash := hex.EncodeToString(sum[:])[:idHashLength]

	var b strings.Builder
	n := 0
	for _, r := range normalized {
		if n == idNameLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}

	return idPrefix + b.String() + "_" + hash
}
