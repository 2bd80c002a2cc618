// Package ioc classifies indicator-of-compromise values extracted from
// events. Classification is pattern-based and ordered; a value that matches
// nothing simply yields no IOC.
package ioc

import (
	"net"
	"regexp"
	"strings"
)

// Type is the indicator class the case system understands.
type Type string

const (
	TypeIP     Type = "ip"
	TypeDomain Type = "domain"
	TypeHash   Type = "hash"
	TypeURL    Type = "url"
)

var (
	domainPattern = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)
	// md5 (32), sha1 (40) or sha256 (64) hex digests
	hashPattern = regexp.MustCompile(`^[a-fA-F0-9]{32}$|^[a-fA-F0-9]{40}$|^[a-fA-F0-9]{64}$`)
	urlPattern  = regexp.MustCompile(`^https?://\S+$`)
)

// Detect classifies a value, trying IP, then domain, then hash, then URL.
// First match wins.
func Detect(value string) (Type, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", false
	}
	if net.ParseIP(v) != nil {
		return TypeIP, true
	}
	if domainPattern.MatchString(strings.ToLower(v)) && !strings.Contains(v, "/") {
		return TypeDomain, true
	}
	if hashPattern.MatchString(v) {
		return TypeHash, true
	}
	if urlPattern.MatchString(v) {
		return TypeURL, true
	}
	return "", false
}
