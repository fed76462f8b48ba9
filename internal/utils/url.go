package utils

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// NormalizeURL normalizes an absolute http(s) URL for consistent handling:
// lower-cased scheme and host, default port removed, path cleaned, fragment
// dropped. The query string is kept as-is.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Remove default ports
	if (u.Scheme == "http" && u.Port() == "80") ||
		(u.Scheme == "https" && u.Port() == "443") {
		u.Host = u.Hostname()
	}

	// Clean path, keeping the root slash
	if u.Path == "" {
		u.Path = "/"
	} else {
		u.Path = path.Clean(u.Path)
	}
	u.RawPath = ""

	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

// ResolveURL resolves a reference against a base URL following RFC 3986
func ResolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}

	resolved := baseURL.ResolveReference(refURL)
	return resolved.String(), nil
}

// IsHTTPURL checks if a URL uses HTTP or HTTPS scheme
func IsHTTPURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// IsFileURL checks if a URL uses the file scheme
func IsFileURL(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "file:")
}

// FileURLToPath converts a file:// URL into a local path
func FileURLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(u.Scheme, "file") {
		return "", fmt.Errorf("not a file URL: %q", rawURL)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file URL with remote host %q is not supported", u.Host)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if p == "" {
		return "", fmt.Errorf("file URL without path: %q", rawURL)
	}
	return filepath.FromSlash(p), nil
}
