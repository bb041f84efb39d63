package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Revision tokens are "<counter>-<hash>" where the counter strictly increases
// on each successful write and the hash is derived from the record content.
// The content hash avoids the timestamp-collision edge cases of purely
// time-based schemes.

// revCounter returns the numeric prefix of a revision token, or 0 for "".
func revCounter(rev string) int64 {
	if rev == "" {
		return 0
	}
	prefix, _, _ := strings.Cut(rev, "-")
	n, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// nextRevision builds the successor revision for rec given the currently
// stored revision. The hash covers the record body with "_rev" excluded, so
// identical content at the same counter yields the same token.
func nextRevision(current string, rec Record) (string, error) {
	body := make(Record, len(rec))
	for k, v := range rec {
		if k == "_rev" {
			continue
		}
		body[k] = v
	}
	// json.Marshal sorts map keys, so the digest is deterministic.
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal record for revision: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%d-%s", revCounter(current)+1, hex.EncodeToString(sum[:4])), nil
}
