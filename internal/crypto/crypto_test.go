package crypto

import (
	"bytes"
	"errors"
	"testing"
)

var testKey = []byte("this-is-a-32-byte-test-key-12345")

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{"valid 32-byte key", 32, false},
		{"too short key", 16, true},
		{"too long key", 64, true},
		{"empty key", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSealer(make([]byte, tt.keyLen))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSealer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSealerIfConfigured_EmptyKey(t *testing.T) {
	s, err := NewSealerIfConfigured(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Fatal("expected nil sealer for empty key")
	}
}

func TestSealOpen(t *testing.T) {
	s, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"token", []byte("eyJhbGciOiJIUzI1NiJ9.e30.sig")},
		{"json descriptor", []byte(`{"s3Key":"lab-reports/a.pdf","size":1024}`)},
		{"empty", []byte{}},
		{"unicode", []byte("Gübelin 证书")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := s.Seal(tt.plaintext)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if !IsSealed(sealed) {
				t.Fatalf("sealed payload missing prefix: %q", sealed)
			}
			if len(tt.plaintext) > 0 && bytes.Contains(sealed, tt.plaintext) {
				t.Fatal("sealed payload contains plaintext")
			}

			opened, err := s.Open(sealed)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(opened, tt.plaintext) {
				t.Errorf("Open() = %q, want %q", opened, tt.plaintext)
			}
		})
	}
}

func TestSeal_UniqueNonces(t *testing.T) {
	s, _ := NewSealer(testKey)

	a, _ := s.Seal([]byte("same"))
	b, _ := s.Seal([]byte("same"))
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same plaintext should differ")
	}
}

func TestOpen_WrongKey(t *testing.T) {
	s1, _ := NewSealer(testKey)
	s2, _ := NewSealer([]byte("another-32-byte-key-for-testing!"))

	sealed, _ := s1.Seal([]byte("secret"))
	if _, err := s2.Open(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("err=%v want ErrDecryptionFailed", err)
	}
}

func TestOpen_PurposeMismatch(t *testing.T) {
	s, _ := NewSealer(testKey)
	session, draft := s.For("session"), s.For("lab-report-draft")

	sealed, err := session.Seal([]byte("bearer-token"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if _, err := draft.Open(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("err=%v want ErrDecryptionFailed", err)
	}
	if _, err := s.Open(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("unscoped Open err=%v want ErrDecryptionFailed", err)
	}

	opened, err := s.For("session").Open(sealed)
	if err != nil || string(opened) != "bearer-token" {
		t.Fatalf("Open() = %q, %v", opened, err)
	}
}

func TestNilSealer(t *testing.T) {
	var s *Sealer
	if s.For("session") != nil {
		t.Fatal("For on a nil Sealer should stay nil")
	}

	out, err := s.Seal([]byte("plain"))
	if err != nil || string(out) != "plain" {
		t.Fatalf("nil Seal = %q, %v", out, err)
	}

	opened, err := s.Open([]byte("plain"))
	if err != nil || string(opened) != "plain" {
		t.Fatalf("nil Open = %q, %v", opened, err)
	}

	keyed, _ := NewSealer(testKey)
	sealed, _ := keyed.Seal([]byte("secret"))
	if _, err := s.Open(sealed); !errors.Is(err, ErrSealedWithoutKey) {
		t.Fatalf("err=%v want ErrSealedWithoutKey", err)
	}
}

func TestOpen_PlaintextPassthrough(t *testing.T) {
	s, _ := NewSealer(testKey)
	out, err := s.Open([]byte(`{"legacy":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"legacy":true}` {
		t.Fatalf("out=%q", out)
	}
}
