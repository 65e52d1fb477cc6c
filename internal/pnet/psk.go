// Package pnet implements the private-network PSK protector: a keyed
// XSalsa20 keystream XOR applied to every byte of a raw connection,
// restricting transport to peers that share a pre-shared key. Built on
// the cryptocore XSalsa20 cipher, with config-file parsing following the
// same line-by-line validation and typed format errors used elsewhere for
// loading YAML config.
package pnet

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// PSKSize is the pre-shared key length in bytes.
const PSKSize = 32

const (
	pskHeaderLine   = "/key/swarm/psk/1.0.0/"
	pskEncodingLine = "/base16/"
)

// InvalidFileFormat reports why a PSK file failed to parse.
type InvalidFileFormat struct {
	Reason string
}

func (e *InvalidFileFormat) Error() string {
	return fmt.Sprintf("pnet: invalid PSK file: %s", e.Reason)
}

// ParsePSKFile reads the 3-line PSK file format: header line, encoding
// line, then 64 hex characters (case-insensitive).
func ParsePSKFile(r io.Reader) ([PSKSize]byte, error) {
	var psk [PSKSize]byte
	scanner := bufio.NewScanner(r)

	lines := make([]string, 0, 3)
	for scanner.Scan() && len(lines) < 3 {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return psk, err
	}
	if len(lines) < 3 {
		return psk, &InvalidFileFormat{Reason: fmt.Sprintf("expected 3 lines, got %d", len(lines))}
	}
	if lines[0] != pskHeaderLine {
		return psk, &InvalidFileFormat{Reason: fmt.Sprintf("unexpected header %q", lines[0])}
	}
	if lines[1] != pskEncodingLine {
		return psk, &InvalidFileFormat{Reason: fmt.Sprintf("unexpected encoding %q", lines[1])}
	}
	keyHex := lines[2]
	if len(keyHex) != PSKSize*2 {
		return psk, &InvalidFileFormat{Reason: fmt.Sprintf("expected %d hex characters, got %d", PSKSize*2, len(keyHex))}
	}
	decoded, err := hex.DecodeString(strings.ToLower(keyHex))
	if err != nil {
		return psk, &InvalidFileFormat{Reason: "invalid hex: " + err.Error()}
	}
	copy(psk[:], decoded)
	return psk, nil
}

// EncodePSKFile renders psk back to the 3-line wire format.
func EncodePSKFile(psk [PSKSize]byte) []byte {
	return []byte(fmt.Sprintf("%s\n%s\n%s\n", pskHeaderLine, pskEncodingLine, hex.EncodeToString(psk[:])))
}

// Fingerprint identifies a PSK without revealing it: SHA-256 of the raw key.
func Fingerprint(psk [PSKSize]byte) [32]byte {
	return sha256.Sum256(psk[:])
}
