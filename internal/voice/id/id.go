// Package id provides opaque unique identifier generation for the voicemix
// domain records.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Generate creates a new unique identifier with the given prefix.
// Format: <prefix>-<timestamp>-<random>
// Example: aud-1701432000-a1b2c3d4
func Generate(prefix string) string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		// Fallback to timestamp only if crypto/rand fails
		return fmt.Sprintf("%s-%d", prefix, timestamp)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, timestamp, hex.EncodeToString(random))
}

// Audio creates an identifier for an audio file record.
func Audio() string { return Generate("aud") }

// Voice creates an identifier for a voice segment record.
func Voice() string { return Generate("voc") }

// Mix creates an identifier for a mix audit record.
func Mix() string { return Generate("mix") }
