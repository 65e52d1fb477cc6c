package pnet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePSKFileRoundTrip(t *testing.T) {
	var psk [PSKSize]byte
	for i := range psk {
		psk[i] = byte(i)
	}
	encoded := EncodePSKFile(psk)
	decoded, err := ParsePSKFile(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, psk, decoded)
}

func TestParsePSKFileRejectsBadHeader(t *testing.T) {
	raw := "/key/swarm/psk/9.9.9/\n/base16/\n" + strings.Repeat("ab", 32) + "\n"
	_, err := ParsePSKFile(strings.NewReader(raw))
	var fmtErr *InvalidFileFormat
	require.ErrorAs(t, err, &fmtErr)
}

func TestParsePSKFileRejectsBadEncoding(t *testing.T) {
	raw := "/key/swarm/psk/1.0.0/\n/base64/\n" + strings.Repeat("ab", 32) + "\n"
	_, err := ParsePSKFile(strings.NewReader(raw))
	var fmtErr *InvalidFileFormat
	require.ErrorAs(t, err, &fmtErr)
}

func TestParsePSKFileRejectsShortKey(t *testing.T) {
	raw := "/key/swarm/psk/1.0.0/\n/base16/\n" + strings.Repeat("ab", 10) + "\n"
	_, err := ParsePSKFile(strings.NewReader(raw))
	var fmtErr *InvalidFileFormat
	require.ErrorAs(t, err, &fmtErr)
}

func TestParsePSKFileRejectsBadHex(t *testing.T) {
	raw := "/key/swarm/psk/1.0.0/\n/base16/\n" + strings.Repeat("zz", 32) + "\n"
	_, err := ParsePSKFile(strings.NewReader(raw))
	var fmtErr *InvalidFileFormat
	require.ErrorAs(t, err, &fmtErr)
}

func TestParsePSKFileRejectsTooFewLines(t *testing.T) {
	raw := "/key/swarm/psk/1.0.0/\n/base16/\n"
	_, err := ParsePSKFile(strings.NewReader(raw))
	var fmtErr *InvalidFileFormat
	require.ErrorAs(t, err, &fmtErr)
}

func TestFingerprintIsDeterministicAndKeyed(t *testing.T) {
	var a, b [PSKSize]byte
	for i := range a {
		a[i] = 0x42
	}
	b = a
	b[0] = 0x43

	require.Equal(t, Fingerprint(a), Fingerprint(a))
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
