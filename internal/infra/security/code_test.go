package security

import (
	"testing"
)

func TestGenerateNumericCodeLengthAndAlphabet(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := GenerateNumericCode(length)
		if err != nil {
			t.Fatalf("GenerateNumericCode(%d): %v", length, err)
		}
		if len(code) != length {
			t.Fatalf("len = %d, want %d", len(code), length)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}
	}
}

func TestGenerateNumericCodeRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatal("length 0 must error")
	}
	if _, err := GenerateNumericCode(-1); err == nil {
		t.Fatal("negative length must error")
	}
}

func TestGenerateNumericCodeDistribution(t *testing.T) {
	// With rejection sampling every digit should appear over a large
	// sample. A missing digit would indicate a broken alphabet.
	counts := make(map[rune]int)
	for i := 0; i < 200; i++ {
		code, err := GenerateNumericCode(10)
		if err != nil {
			t.Fatalf("GenerateNumericCode: %v", err)
		}
		for _, r := range code {
			counts[r]++
		}
	}
	for d := '0'; d <= '9'; d++ {
		if counts[d] == 0 {
			t.Fatalf("digit %q never generated in 2000 samples", d)
		}
	}
}

func TestGenerateSecureTokenUniqueAndURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		token, err := GenerateSecureToken(32)
		if err != nil {
			t.Fatalf("GenerateSecureToken: %v", err)
		}
		if token == "" {
			t.Fatal("empty token")
		}
		for _, r := range token {
			if r == '+' || r == '/' || r == '=' {
				t.Fatalf("token %q is not URL-safe", token)
			}
		}
		if seen[token] {
			t.Fatalf("token %q repeated", token)
		}
		seen[token] = true
	}
}
