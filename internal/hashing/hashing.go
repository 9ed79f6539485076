// Package hashing provides the deterministic content hashing used for blocks,
// transactions, and evidence identifiers. All digests are SHA-256 rendered as
// lowercase hex.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// EvidenceIDLength is the number of hex characters taken from a content
// fingerprint when deriving an evidence identifier.
const EvidenceIDLength = 16

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumReader streams r through SHA-256 and returns the hex digest.
func SumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalJSON encodes v as JSON with lexicographically sorted object keys
// and no HTML escaping, so the same value always produces the same bytes.
// Two blocks with identical content must hash identically regardless of the
// field order Go's encoder would otherwise pick for maps.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode for canonicalisation: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := writeCanonical(buf, decoded); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SumCanonical returns the hex SHA-256 of v's canonical JSON encoding.
func SumCanonical(v any) (string, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return Sum(b), nil
}

// DeriveEvidenceID derives an evidence identifier from a content fingerprint.
// The identifier is the first EvidenceIDLength hex characters of the SHA-256
// of the fingerprint string.
func DeriveEvidenceID(fileHash string) string {
	return Sum([]byte(fileHash))[:EvidenceIDLength]
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return err
		}
		// Encode appends a newline; strip it to keep output byte-stable.
		buf.Truncate(buf.Len() - 1)
		return nil
	}
}
