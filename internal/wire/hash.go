package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration.
const (
	DomainNode = "calyx/node/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NodeID computes the content-addressed ID of one invocation node.
// The ID is stable across restarts given the same inputs: the same
// flow, target, payload, and sequence number always hash to the same
// node identity.
func NodeID(flowToken string, target string, payload []byte, seq int64) (string, error) {
	obj := map[string]any{
		"flow_token": flowToken,
		"target":     target,
		"payload":    hex.EncodeToString(payload),
		"seq":        seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("NodeID: marshal: %w", err)
	}

	return hashWithDomain(DomainNode, canonical), nil
}

// MustNodeID is like NodeID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNodeID(flowToken string, target string, payload []byte, seq int64) string {
	id, err := NodeID(flowToken, target, payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}
