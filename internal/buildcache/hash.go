package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// chunkSize is the read size used while hashing.
const chunkSize = 4096

// ContentHash streams the file at path through SHA-256 in fixed-size chunks.
// ok is false when the file does not exist or cannot be read.
func ContentHash(path string) (digest string, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", false
		}
	}
	return hex.EncodeToString(h.Sum(nil)), true
}
