package users

import (
	"errors"
	"testing"

	"resumeiq-backend/internal/apperr"
)

func TestNormalizeUsername(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"abc", "abc", false},
		{"Ab_1", "ab_1", false},
		{"  jane_doe99 ", "jane_doe99", false},
		{"ab", "", true},
		{"abcdefghijklmnopqrstu", "", true},
		{"abcdefghijklmnopqrst", "abcdefghijklmnopqrst", false},
		{"jane-doe", "", true},
		{"jane doe", "", true},
		{"émile", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeUsername(tc.in)
		if tc.wantErr {
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Fatalf("NormalizeUsername(%q) error = %v, want ErrInvalidInput", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("NormalizeUsername(%q) = (%q,%v), want (%q,nil)", tc.in, got, err, tc.want)
		}
	}
}
