package util

import (
	"crypto/md5"
	"encoding/hex"
)

// HashBytes returns the MD5 hash of b as lowercase hex.
func HashBytes(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}
