package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed keys.
// The version suffix enables future encoding migration.
const (
	DomainShape   = "relq/shape/v1"
	DomainCommand = "relq/command/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ShapeHash computes the content-addressed hash of an encoded statement shape.
// Two statements with equal shapes produce equal SQL for equal parameter
// nullability, so the hash is usable as a command cache key component.
func ShapeHash(shape IRValue) (string, error) {
	canonical, err := MarshalCanonical(shape)
	if err != nil {
		return "", fmt.Errorf("ShapeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainShape, canonical), nil
}

// CommandHash computes a stable identity for rendered command text and its
// binding names. Used to detect whether two compilations produced the same
// command.
func CommandHash(sql string, bindings []string) (string, error) {
	names := make(IRArray, len(bindings))
	for i, b := range bindings {
		names[i] = IRString(b)
	}
	canonical, err := MarshalCanonical(IRObject{
		"sql":      IRString(sql),
		"bindings": names,
	})
	if err != nil {
		return "", fmt.Errorf("CommandHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCommand, canonical), nil
}

// MustShapeHash is like ShapeHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustShapeHash(shape IRValue) string {
	h, err := ShapeHash(shape)
	if err != nil {
		panic(err)
	}
	return h
}
