package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateKeyPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.key")

	k1, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateKey() error: %v", err)
	}
	k2, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateKey() reload error: %v", err)
	}
	if !bytes.Equal(k1.key, k2.key) {
		t.Error("reloaded key differs from created key")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestTokenSealRoundTrip(t *testing.T) {
	key, err := LoadOrCreateKey(filepath.Join(t.TempDir(), "bridge.key"))
	if err != nil {
		t.Fatal(err)
	}

	sealed, err := key.SealToken("user-token-123")
	if err != nil {
		t.Fatalf("SealToken() error: %v", err)
	}
	if bytes.Contains(sealed, []byte("user-token-123")) {
		t.Error("sealed blob contains the plaintext token")
	}

	token, err := key.OpenToken(sealed)
	if err != nil {
		t.Fatalf("OpenToken() error: %v", err)
	}
	if token != "user-token-123" {
		t.Errorf("OpenToken() = %q", token)
	}

	// Two seals of the same token differ because of the random nonce.
	sealed2, err := key.SealToken("user-token-123")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(sealed, sealed2) {
		t.Error("nonce reuse: identical ciphertexts for identical plaintexts")
	}
}

func TestOpenTokenRejectsTampering(t *testing.T) {
	key, err := LoadOrCreateKey(filepath.Join(t.TempDir(), "bridge.key"))
	if err != nil {
		t.Fatal(err)
	}

	sealed, err := key.SealToken("user-token-123")
	if err != nil {
		t.Fatal(err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := key.OpenToken(sealed); err == nil {
		t.Error("tampered ciphertext decrypted without error")
	}

	if _, err := key.OpenToken([]byte("short")); err == nil {
		t.Error("truncated ciphertext decrypted without error")
	}
}
