// Package contentaddr derives reproducible identifiers from content.
//
// Hashes are used for equality and deduplication only. Chunk identifiers
// are name-based UUIDs so the same (document, index, text) triple always
// maps to the same id across processes and restarts.
package contentaddr

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// separator cannot appear in a decimal index and keeps the fields unambiguous.
const separator = "\x1f"

// chunkNamespace scopes chunk ids so they never collide with other name-based UUIDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("raggy:chunk"))

// ContentHash returns the hex SHA-256 digest of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkID returns the deterministic identifier of a chunk.
func ChunkID(documentID string, index int, text string) string {
	var b strings.Builder
	b.Grow(len(documentID) + len(text) + 24)
	b.WriteString(documentID)
	b.WriteString(separator)
	b.WriteString(strconv.Itoa(index))
	b.WriteString(separator)
	b.WriteString(text)
	return uuid.NewSHA1(chunkNamespace, []byte(b.String())).String()
}

// TokenCount returns the number of whitespace-delimited tokens in text.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}
