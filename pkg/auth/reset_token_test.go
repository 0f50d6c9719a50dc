package auth

import (
	"encoding/hex"
	"testing"
	"time"
)

func TestResetTokenCodec_Issue(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	codec := NewResetTokenCodec(15 * time.Minute)
	codec.now = func() time.Time { return fixed }

	token, err := codec.Issue()
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if len(token.Plaintext) != ResetTokenBytes*2 {
		t.Errorf("plaintext length = %d, want %d", len(token.Plaintext), ResetTokenBytes*2)
	}
	if _, err := hex.DecodeString(token.Plaintext); err != nil {
		t.Errorf("plaintext should be hex encoded: %v", err)
	}
	if token.Digest == token.Plaintext {
		t.Error("digest must not equal plaintext")
	}
	if token.Digest != codec.Digest(token.Plaintext) {
		t.Error("digest should be reproducible from plaintext")
	}
	if want := fixed.Add(15 * time.Minute); !token.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", token.ExpiresAt, want)
	}
}

func TestResetTokenCodec_IssueIsUnique(t *testing.T) {
	codec := NewResetTokenCodec(time.Minute)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		token, err := codec.Issue()
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if seen[token.Plaintext] {
			t.Fatalf("duplicate token issued: %s", token.Plaintext)
		}
		seen[token.Plaintext] = true
	}
}

func TestResetTokenCodec_Digest(t *testing.T) {
	codec := NewResetTokenCodec(time.Minute)

	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := codec.Digest("abc"); got != want {
		t.Errorf("Digest(abc) = %s, want %s", got, want)
	}
	if codec.Digest("abc") == codec.Digest("abd") {
		t.Error("different tokens should have different digests")
	}
}

func TestNewResetTokenCodec_DefaultTTL(t *testing.T) {
	if got := NewResetTokenCodec(0).TTL(); got != DefaultResetTokenExpiry {
		t.Errorf("TTL = %v, want %v", got, DefaultResetTokenExpiry)
	}
}
