package manifest

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// Canonicalize turns a reference into a canonical source id. Local paths
// become absolute and cleaned; file:// URLs become local paths; http(s) URLs
// are normalized. A relative reference resolves against base: the directory
// of a local base, or RFC 3986 resolution for a URL base. Under a URL base a
// leading slash is root-relative and file:// references are rejected. With an
// empty base, relative paths resolve against the working directory.
func Canonicalize(ref, base string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidSource, ErrEmptyReference)
	}

	if utils.IsHTTPURL(ref) {
		return normalizeURL(ref)
	}

	// inside a remote manifest every non-URL reference is a URL reference,
	// root-relative ones included
	if utils.IsHTTPURL(base) {
		if utils.IsFileURL(ref) {
			return "", fmt.Errorf("%w: %q from %s: %w", domain.ErrInvalidSource, ref, base, ErrLocalFromRemote)
		}
		if hasScheme(ref) {
			return "", fmt.Errorf("%w: %q: %w", domain.ErrInvalidSource, ref, ErrUnsupportedScheme)
		}
		resolved, err := utils.ResolveURL(base, filepath.ToSlash(ref))
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidSource, err)
		}
		return normalizeURL(resolved)
	}

	switch {
	case utils.IsFileURL(ref):
		p, err := utils.FileURLToPath(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidSource, err)
		}
		return filepath.Clean(p), nil
	case filepath.IsAbs(ref):
		return filepath.Clean(ref), nil
	case hasScheme(ref):
		return "", fmt.Errorf("%w: %q: %w", domain.ErrInvalidSource, ref, ErrUnsupportedScheme)
	}

	// relative reference
	switch {
	case base == "":
		p, err := utils.AbsPath(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidSource, err)
		}
		return p, nil
	default:
		if strings.HasPrefix(ref, "~") {
			return utils.AbsPath(ref)
		}
		baseDir := filepath.Dir(base)
		if utils.IsFileURL(base) {
			p, err := utils.FileURLToPath(base)
			if err != nil {
				return "", fmt.Errorf("%w: %v", domain.ErrInvalidSource, err)
			}
			baseDir = filepath.Dir(p)
		}
		return filepath.Clean(filepath.Join(baseDir, filepath.FromSlash(ref))), nil
	}
}

func normalizeURL(raw string) (string, error) {
	n, err := utils.NormalizeURL(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidSource, err)
	}
	return n, nil
}

// hasScheme reports whether ref looks like scheme:rest. Single-letter schemes
// are treated as Windows drive letters.
func hasScheme(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return len(u.Scheme) > 1
}
