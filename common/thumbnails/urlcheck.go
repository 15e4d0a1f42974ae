package thumbnails

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// URLValidator checks thumbnail URLs before they are fetched.
// Thumbnail storage usually lives on the internal network, so loopback and
// private addresses are allowed; cloud metadata endpoints are not.
type URLValidator struct {
	allowedProtocols map[string]bool
	blockedPatterns  []string
}

// NewURLValidator creates a validator accepting http and https URLs
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedProtocols: map[string]bool{
			"http":  true,
			"https": true,
		},
		blockedPatterns: []string{
			"../",       // Path traversal
			"..\\",      // Path traversal (Windows)
			"%2e%2e/",   // ../
			"%2e%2e%2f", // ../
			"..%2f",     // ../
			"%2e%2e%5c", // ..\
			"..%5c",     // ..\
		},
	}
}

// Validate returns an error when rawURL must not be fetched
func (v *URLValidator) Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !v.allowedProtocols[scheme] {
		return fmt.Errorf("protocol '%s' is not allowed (only http/https permitted)", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("hostname is required")
	}
	if ip := net.ParseIP(host); ip != nil {
		if err := validateIP(ip); err != nil {
			return err
		}
	}

	for _, path := range []string{parsed.Path, parsed.EscapedPath()} {
		path = strings.ToLower(path)
		for _, pattern := range v.blockedPatterns {
			if strings.Contains(path, pattern) {
				return fmt.Errorf("path contains blocked pattern '%s'", pattern)
			}
		}
	}

	return nil
}

func validateIP(ip net.IP) error {
	switch {
	case ip.IsLinkLocalUnicast():
		// 169.254.169.254 is the metadata service on most clouds
		return fmt.Errorf("IP %s is blocked (link-local address)", ip)
	case ip.IsMulticast():
		return fmt.Errorf("IP %s is blocked (multicast address)", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("IP %s is blocked (unspecified address)", ip)
	}
	return nil
}
