// Package hashing provides the streaming SHA-256 accumulator used by the
// advisory loaders to compute a document's content hash while it's being
// parsed, instead of buffering the whole document twice.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Reader wraps an io.Reader, accumulating a SHA-256 digest of every byte
// read through it. Callers must read the underlying reader to exhaustion
// before calling [Reader.Sum] for the digest to be meaningful.
type Reader struct {
	r io.Reader
	h hash.Hash
}

// NewReader returns a Reader that hashes everything read from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, h: sha256.New()}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.h.Write(p[:n])
	}
	return n, err
}

// Sum returns the lowercase hex-encoded SHA-256 digest of everything read
// so far.
func (r *Reader) Sum() string {
	return hex.EncodeToString(r.h.Sum(nil))
}

// SumBytes returns the SHA-256 digest of b as lowercase hex, for callers
// that already hold the full document in memory.
func SumBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
