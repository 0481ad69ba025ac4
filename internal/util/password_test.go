package util

import (
	"errors"
	"testing"
)

func TestDeriveAndVerifyPassword(t *testing.T) {
	hash, salt, err := DerivePassword("s3cret-pass")
	if err != nil {
		t.Fatalf("DerivePassword returned error: %v", err)
	}
	if len(hash) == 0 || len(salt) == 0 {
		t.Fatalf("expected hash and salt to be populated")
	}
	if !VerifyPassword("s3cret-pass", salt, hash) {
		t.Fatalf("expected password verification to succeed")
	}
	if VerifyPassword("wrong-pass", salt, hash) {
		t.Fatalf("expected password verification to fail for wrong password")
	}
}

func TestHashPasswordEmptyInput(t *testing.T) {
	if _, err := HashPassword("", []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error when password empty")
	}
	if _, err := HashPassword("secret", nil); err == nil {
		t.Fatalf("expected error when salt empty")
	}
}

func TestValidateTransactionPassword(t *testing.T) {
	if err := ValidateTransactionPassword("abcdefgh"); err != nil {
		t.Fatalf("expected 8-character password to pass, got %v", err)
	}
	if err := ValidateTransactionPassword("1234567"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	// Numeric PINs of sufficient length are allowed.
	if err := ValidateTransactionPassword("12345678"); err != nil {
		t.Fatalf("expected numeric password to pass, got %v", err)
	}
}

func TestDerivePasswordSaltsDiffer(t *testing.T) {
	hashA, saltA, err := DerivePassword("same-input")
	if err != nil {
		t.Fatalf("DerivePassword returned error: %v", err)
	}
	hashB, saltB, err := DerivePassword("same-input")
	if err != nil {
		t.Fatalf("DerivePassword returned error: %v", err)
	}
	if string(saltA) == string(saltB) {
		t.Fatalf("expected fresh salt per derivation")
	}
	if string(hashA) == string(hashB) {
		t.Fatalf("expected differing hashes under differing salts")
	}
}
