package cryptocore

import (
	"encoding/hex"
	"testing"
)

// TestXSalsa20KAT checks the keystream against the libsodium "stream3" known
// answer: the fixed key/nonce must yield the exact 32-byte keystream
// prefix eea6a725...
func TestXSalsa20KAT(t *testing.T) {
	// libsodium tests/stream3 fixed key/nonce.
	keyHex := "1b27556473e985d462cd51197a9a46c76009549eac6474f206c4ee0844f68389"
	nonceHex := "69696ee955b62b73cd62bda875fc73d68219e00369100025"

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil || len(keyBytes) != 32 {
		t.Fatalf("bad key fixture: %v", err)
	}
	nonceBytes, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonceBytes) != 24 {
		t.Fatalf("bad nonce fixture: %v", err)
	}

	var key [32]byte
	var nonce [24]byte
	copy(key[:], keyBytes)
	copy(nonce[:], nonceBytes)

	c := NewXSalsa20(key, nonce)
	ks := c.Keystream(32)

	want := "eea6a7251c1e72916d11c2cb214d3c252539121d8e234e652d651fa4c8cff880"
	got := hex.EncodeToString(ks)
	if got != want {
		t.Fatalf("keystream mismatch:\n got  %s\n want %s", got, want)
	}
}

func TestXSalsa20RoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	var nonce [24]byte
	for i := range nonce {
		nonce[i] = byte(0x80 + i)
	}

	plaintext := make([]byte, 8192)
	for i := range plaintext {
		plaintext[i] = byte(i & 0xFF)
	}

	enc := NewXSalsa20(key, nonce)
	ciphertext := make([]byte, len(plaintext))
	enc.XORKeyStream(ciphertext, plaintext)

	dec := NewXSalsa20(key, nonce)
	roundtrip := make([]byte, len(ciphertext))
	dec.XORKeyStream(roundtrip, ciphertext)

	for i := range plaintext {
		if roundtrip[i] != plaintext[i] {
			t.Fatalf("roundtrip mismatch at byte %d: got %x want %x", i, roundtrip[i], plaintext[i])
		}
	}
	if string(ciphertext) == string(plaintext) {
		t.Fatal("ciphertext must differ from plaintext")
	}
}

func TestSmallOrderPointsRejected(t *testing.T) {
	priv, _, err := GenerateX25519()
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range smallOrderPoints {
		if _, err := X25519(priv, p); err != ErrInvalidKey {
			t.Fatalf("point %d: expected ErrInvalidKey, got %v", i, err)
		}
	}
}

func TestX25519RoundTrip(t *testing.T) {
	aPriv, aPub, err := GenerateX25519()
	if err != nil {
		t.Fatal(err)
	}
	bPriv, bPub, err := GenerateX25519()
	if err != nil {
		t.Fatal(err)
	}
	s1, err := X25519(aPriv, bPub)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := X25519(bPriv, aPub)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatal("shared secrets disagree")
	}
}

func TestNonceCounterOverflow(t *testing.T) {
	var c NonceCounter
	c.next = ^uint64(0)
	v, err := c.Next()
	if err != nil {
		t.Fatalf("unexpected error issuing max value: %v", err)
	}
	if v != ^uint64(0) {
		t.Fatalf("expected max value, got %d", v)
	}
	if _, err := c.Next(); err != ErrNonceOverflow {
		t.Fatalf("expected ErrNonceOverflow, got %v", err)
	}
}
