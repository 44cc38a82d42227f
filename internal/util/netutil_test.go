package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelsolaorbaiceta/h2cli/internal/util"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantHost string
		wantPort int
	}{
		{"bare hostname defaults to 443", "example.com", "example.com", 443},
		{"host and port", "example.com:8443", "example.com", 8443},
		{"https URL", "https://example.com", "example.com", 443},
		{"https URL with port", "https://example.com:1234", "example.com", 1234},
		{"https URL with path", "https://example.com/some/path", "example.com", 443},
		{"IPv6 with port", "[::1]:8443", "::1", 8443},
		{"surrounding whitespace", "  example.com  ", "example.com", 443},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			host, port, err := util.ParseTarget(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.wantHost, host)
			assert.Equal(t, tc.wantPort, port)
		})
	}
}

func TestParseTargetErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"plaintext scheme", "http://example.com"},
		{"unknown scheme", "ftp://example.com"},
		{"missing host in URL", "https://"},
		{"missing host with port", ":443"},
		{"port is not a number", "example.com:https"},
		{"port out of range", "example.com:99999"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := util.ParseTarget(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestJoinHostPort(t *testing.T) {
	assert.Equal(t, "example.com:443", util.JoinHostPort("example.com", 443))
	assert.Equal(t, "[::1]:8443", util.JoinHostPort("::1", 8443))
}
