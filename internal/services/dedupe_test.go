package services

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"090-1234-5678", "09012345678"},
		{" 03 1234 5678 ", "0312345678"},
		{"０９０－１２３４－５６７８", "09012345678"},
		{"09012345678", "09012345678"},
	}
	for _, tc := range tests {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDedupeToken(t *testing.T) {
	hyphenated, err := DedupeToken("090-1234-5678")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	plain, err := DedupeToken("09012345678")
	if err != nil {
		t.Fatal(err)
	}
	if hyphenated != plain {
		t.Error("formatting differences must not change the token")
	}
	if len(plain) != 64 {
		t.Errorf("token %q is not a hex SHA-256", plain)
	}

	for _, bad := range []string{"", "9012345678", "0901234567890", "090-abcd-5678", "+819012345678"} {
		if _, err := DedupeToken(bad); !errors.Is(err, ErrInvalidApplication) {
			t.Errorf("DedupeToken(%q) = %v, want ErrInvalidApplication", bad, err)
		}
	}
}
