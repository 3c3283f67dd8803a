package encryption_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"modmap/internal/config"
	"modmap/internal/encryption"
)

func TestTestEncryptor(t *testing.T) {
	e := encryption.NewTestEncryptor()
	plaintext := []byte(`{"metadata": {"version": "1.0"}, "modules": {}}`)

	t.Run("round trip", func(t *testing.T) {
		var ciphertext bytes.Buffer
		if err := e.Encrypt(bytes.NewReader(plaintext), &ciphertext); err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if bytes.Equal(ciphertext.Bytes(), plaintext) {
			t.Error("ciphertext equals plaintext")
		}

		var decrypted bytes.Buffer
		if err := e.Decrypt(bytes.NewReader(ciphertext.Bytes()), &decrypted); err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if !bytes.Equal(decrypted.Bytes(), plaintext) {
			t.Error("round trip lost data")
		}
	})

	t.Run("rejects data without the header", func(t *testing.T) {
		var out bytes.Buffer
		if err := e.Decrypt(bytes.NewReader(plaintext), &out); err == nil {
			t.Error("Decrypt() of unencrypted data succeeded")
		}
	})
}

func TestAgeEncryptor(t *testing.T) {
	newConfigured := func(t *testing.T) *encryption.AgeEncryptor {
		t.Helper()
		dir := t.TempDir()
		e := encryption.NewAgeEncryptor(config.EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(dir, "keys", "modmap.pub"),
			PrivateKeyPath: filepath.Join(dir, "keys", "modmap.key"),
		})
		if err := e.Setup("correct horse battery staple"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		return e
	}

	t.Run("setup writes both key files", func(t *testing.T) {
		e := newConfigured(t)
		if !e.IsConfigured() {
			t.Error("IsConfigured() = false after Setup")
		}
	})

	t.Run("encrypt, unlock, decrypt round trip", func(t *testing.T) {
		e := newConfigured(t)
		plaintext := []byte("snapshot bytes leaving the host")

		var ciphertext bytes.Buffer
		if err := e.Encrypt(bytes.NewReader(plaintext), &ciphertext); err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}

		var out bytes.Buffer
		if err := e.Decrypt(bytes.NewReader(ciphertext.Bytes()), &out); err == nil {
			t.Fatal("Decrypt() before Unlock succeeded")
		}

		if err := e.Unlock("correct horse battery staple"); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
		if err := e.Decrypt(bytes.NewReader(ciphertext.Bytes()), &out); err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if !bytes.Equal(out.Bytes(), plaintext) {
			t.Error("round trip lost data")
		}
	})

	t.Run("wrong passphrase cannot unlock", func(t *testing.T) {
		e := newConfigured(t)
		if err := e.Unlock("guessed wrong"); err == nil {
			t.Error("Unlock() with the wrong passphrase succeeded")
		}
	})

	t.Run("unconfigured paths report not configured", func(t *testing.T) {
		dir := t.TempDir()
		e := encryption.NewAgeEncryptor(config.EncryptionConfig{
			PublicKeyPath:  filepath.Join(dir, "absent.pub"),
			PrivateKeyPath: filepath.Join(dir, "absent.key"),
		})
		if e.IsConfigured() {
			t.Error("IsConfigured() = true with no key files")
		}
	})
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Run("empty type disables encryption", func(t *testing.T) {
		e, err := encryption.NewEncryptorFromConfig(config.EncryptionConfig{})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if e != nil {
			t.Errorf("encryptor = %T, want nil", e)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := encryption.NewEncryptorFromConfig(config.EncryptionConfig{Type: "rot13"}); err == nil {
			t.Error("unknown encryption type accepted")
		}
	})
}
