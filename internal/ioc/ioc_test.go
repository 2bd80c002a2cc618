package ioc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		value    string
		want     Type
		detected bool
	}{
		{"192.168.1.10", TypeIP, true},
		{"2001:db8::1", TypeIP, true},
		{"evil.example.com", TypeDomain, true},
		{"d41d8cd98f00b204e9800998ecf8427e", TypeHash, true},                                 // md5
		{"da39a3ee5e6b4b0d3255bfef95601890afd80709", TypeHash, true},                         // sha1
		{"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", TypeHash, true}, // sha256
		{"http://evil.example.com/payload.bin", TypeURL, true},
		{"https://evil.example.com/", TypeURL, true},
		{"just some text", "", false},
		{"", "", false},
		{"  10.0.0.1  ", TypeIP, true},
		{"999.999.999.999", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := Detect(tt.value)
			assert.Equal(t, tt.detected, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
