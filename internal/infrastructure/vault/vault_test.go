package vault

import (
	"strings"
	"testing"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return v
}

func TestNew_InvalidKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty key", ""},
		{"not hex", "zz"},
		{"too short", "abcd"},
		{"16 bytes", strings.Repeat("ab", 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.key); err == nil {
				t.Errorf("New(%q) expected error, got nil", tt.key)
			}
		})
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	tests := []string{
		"a",
		"my-api-key-12345",
		"secret with spaces and ünïcode",
		strings.Repeat("x", 4096),
	}

	for _, plaintext := range tests {
		ciphertext, err := v.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", plaintext, err)
		}

		parts := strings.Split(ciphertext, ":")
		if len(parts) != 2 {
			t.Fatalf("ciphertext = %q, want iv:ciphertext format", ciphertext)
		}

		if got := v.Decrypt(ciphertext); got != plaintext {
			t.Errorf("Decrypt(Encrypt(%q)) = %q", plaintext, got)
		}
	}
}

func TestEncrypt_UniqueIVPerCall(t *testing.T) {
	v := newTestVault(t)

	first, err := v.Encrypt("same-secret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	second, err := v.Encrypt("same-secret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if first == second {
		t.Error("two encryptions of the same plaintext produced identical output")
	}
}

func TestDecrypt_FailsClosed(t *testing.T) {
	v := newTestVault(t)

	valid, err := v.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	tampered := valid[:len(valid)-2] + "00"
	if tampered == valid {
		tampered = valid[:len(valid)-2] + "11"
	}

	tests := []struct {
		name  string
		input string
	}{
		{"empty string", ""},
		{"garbage", "garbage"},
		{"wrong part count", "aa:bb:cc"},
		{"bad iv hex", "zz:" + strings.Repeat("ab", 20)},
		{"bad ciphertext hex", strings.Repeat("ab", 12) + ":zz"},
		{"iv wrong length", "abcd:" + strings.Repeat("ab", 20)},
		{"tampered ciphertext", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Decrypt(tt.input); got != "" {
				t.Errorf("Decrypt(%q) = %q, want empty string", tt.input, got)
			}
		})
	}
}

func TestMask(t *testing.T) {
	v := newTestVault(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "********"},
		{"short secret", "abc", "********"},
		{"seven chars", "abcdefg", "********"},
		{"api key", "sk-1234567890abcdef", "sk-1***********cdef"},
		{"twelve chars", "abcdefghijkl", "abcd****ijkl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Mask(tt.input); got != tt.want {
				t.Errorf("Mask(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateMasterKey(t *testing.T) {
	key, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("GenerateMasterKey() error = %v", err)
	}
	if len(key) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(key))
	}
	if _, err := New(key); err != nil {
		t.Errorf("generated key rejected by New(): %v", err)
	}
}
