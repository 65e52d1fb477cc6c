package envelope

import (
	"bytes"
	"testing"

	"github.com/unicornultrafoundation/p2pcore/internal/identity"
)

func TestSealOpenRoundTrip(t *testing.T) {
	kp, err := identity.Generate()
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("hello beacon peer record")
	env := Seal(kp, "p2p-beacon-peer-record", 0x03B0, payload)

	got, pub, err := env.Open("p2p-beacon-peer-record")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %q want %q", got, payload)
	}
	if !bytes.Equal(pub, kp.PublicKey) {
		t.Fatal("recovered public key does not match signer")
	}
}

func TestOpenWrongDomainFails(t *testing.T) {
	kp, _ := identity.Generate()
	env := Seal(kp, "domain-a", 1, []byte("x"))
	if _, _, err := env.Open("domain-b"); err == nil {
		t.Fatal("expected domain mismatch error")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	kp, _ := identity.Generate()
	env := Seal(kp, "p2p-beacon-peer-record", 0x03B0, []byte("payload bytes"))
	data := env.Marshal()

	parsed, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, _, err := parsed.Open("p2p-beacon-peer-record"); err != nil {
		t.Fatalf("open parsed envelope: %v", err)
	}
	if !bytes.Equal(parsed.Payload, env.Payload) {
		t.Fatal("payload mismatch after round trip")
	}
}

func TestTamperedSignatureFails(t *testing.T) {
	kp, _ := identity.Generate()
	env := Seal(kp, "d", 1, []byte("payload"))
	env.Signature[0] ^= 0xFF
	if _, _, err := env.Open("d"); err != ErrBadSignature {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}
