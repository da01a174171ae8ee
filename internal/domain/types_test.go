package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHost(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Pay.Example", "pay.example"},
		{"pay.example:8080", "pay.example"},
		{"pay.example.", "pay.example"},
		{"PAY.EXAMPLE.:443", "pay.example"},
		{"::1", "::1"},
		{"[::1]:8080", "::1"},
		{"2001:db8::42", "2001:db8::42"},
		{"127.0.0.1:9090", "127.0.0.1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeHost(tc.in), "host %q", tc.in)
	}
}

func TestLookupKeyDefaultsEmptyPath(t *testing.T) {
	assert.Equal(t, LookupKey("pay.example", ""), LookupKey("pay.example", "/"))
	assert.NotEqual(t, LookupKey("pay.example", "/a"), LookupKey("pay.example", "/b"))
}
