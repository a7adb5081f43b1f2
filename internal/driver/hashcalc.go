package driver

import (
	"crypto/sha256"
)

// Digest is the SHA-256 of an AST document's bytes.
type Digest [sha256.Size]byte

// contentDigest: H(schema || content). The schema byte pair keeps entries of
// different cache layouts apart even when the file is unchanged.
func contentDigest(content []byte) Digest {
	h := sha256.New()
	_, _ = h.Write([]byte{byte(diskCacheSchemaVersion >> 8), byte(diskCacheSchemaVersion)})
	_, _ = h.Write(content)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
