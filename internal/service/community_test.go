package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFullName(t *testing.T) {
	cases := []struct {
		input string
		name  string
		host  string
		ok    bool
	}{
		{"linux@lemmy.example.org", "linux", "lemmy.example.org", true},
		{"!linux@lemmy.example.org", "linux", "lemmy.example.org", true},
		{"  Linux@Lemmy.Example.Org  ", "linux", "lemmy.example.org", true},
		{"linux", "", "", false},
		{"@lemmy.example.org", "", "", false},
		{"linux@", "", "", false},
		{"no spaces@lemmy.example.org", "", "", false},
		{"bad-name@lemmy.example.org", "", "", false},
	}
	for _, tc := range cases {
		name, host, ok := splitFullName(tc.input)
		assert.Equal(t, tc.ok, ok, tc.input)
		assert.Equal(t, tc.name, name, tc.input)
		assert.Equal(t, tc.host, host, tc.input)
	}
}
