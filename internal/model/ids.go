package model

import (
	"github.com/minio/highwayhash"
)

// idKey is the fixed HighwayHash key used for identifier derivation.
// Identifiers must be identical across runs and machines, so the key is a
// compile-time constant rather than a per-process secret.
var idKey = [32]byte{
	0x73, 0x74, 0x61, 0x74, 0x69, 0x6b, 0x2d, 0x69,
	0x64, 0x2d, 0x6b, 0x65, 0x79, 0x2d, 0x76, 0x31,
	0x9e, 0x37, 0x79, 0xb9, 0x7f, 0x4a, 0x7c, 0x15,
	0xf3, 0x9c, 0xc0, 0x60, 0x5c, 0xed, 0xc8, 0x34,
}

func hash64(parts ...string) uint64 {
	h, err := highwayhash.New64(idKey[:])
	if err != nil {
		// The key length is fixed at compile time; New64 cannot fail.
		panic(err)
	}
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return h.Sum64()
}

// NewFileId derives a FileId from a project-relative path.
func NewFileId(relPath string) FileId {
	return FileId(hash64(relPath))
}

// NewSymbolId derives a SymbolId from the owning file's relative path, the
// symbol kind, and the dotted qualified name. Pure function of its inputs:
// two runs over identical sources produce identical ids.
func NewSymbolId(relPath string, kind SymbolKind, qualifiedName string) SymbolId {
	return SymbolId(hash64(relPath, string(kind), qualifiedName))
}
