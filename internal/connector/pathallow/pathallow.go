// Package pathallow canonicalizes connector-requested image paths and
// checks them against the configured allowlist roots. Every rejection
// happens before any storage access is attempted.
package pathallow

import (
	"net/url"
	"path"
	"strings"

	dErrors "sealproof/pkg/domain-errors"
)

// Allowlist holds the canonical roots a connector may read from. Roots are
// canonicalized at construction; matching is on whole path segments, so
// /mnt/checks never admits /mnt/checks-archive.
type Allowlist struct {
	roots           []string
	caseInsensitive bool
}

// Option configures an Allowlist.
type Option func(*Allowlist)

// CaseInsensitive makes root matching fold case, for backends whose
// filesystems do.
func CaseInsensitive() Option {
	return func(a *Allowlist) { a.caseInsensitive = true }
}

// New builds an allowlist from the configured roots. Relative or empty
// roots are a deployment mistake and are rejected outright.
func New(roots []string, opts ...Option) (*Allowlist, error) {
	if len(roots) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "allowlist requires at least one root")
	}
	a := &Allowlist{}
	for _, opt := range opts {
		opt(a)
	}
	for _, root := range roots {
		canonical, err := Canonicalize(root)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "allowlist root is not a valid path")
		}
		if a.caseInsensitive {
			canonical = strings.ToLower(canonical)
		}
		a.roots = append(a.roots, canonical)
	}
	return a, nil
}

// Canonicalize normalizes a requested path: percent-decodes it, collapses
// separators and dot segments, resolves ".." lexically, and rejects anything
// that cannot be resolved to an absolute path without escaping the root.
func Canonicalize(raw string) (string, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodePathNotAllowed, "path is empty")
	}
	// Decode until stable so double-encoded probes like %252e%252e do not
	// slip a literal "%2e%2e" segment past the traversal walk below.
	decoded := raw
	for range 3 {
		next, err := url.PathUnescape(decoded)
		if err != nil {
			return "", dErrors.New(dErrors.CodePathNotAllowed, "path contains malformed percent-encoding")
		}
		if next == decoded {
			break
		}
		decoded = next
	}
	if strings.ContainsRune(decoded, 0) {
		return "", dErrors.New(dErrors.CodePathNotAllowed, "path contains a NUL byte")
	}
	// Backslashes are treated as separators so Windows-style probes do not
	// smuggle ".." past the lexical cleaner.
	normalized := strings.ReplaceAll(decoded, `\`, "/")
	if !strings.HasPrefix(normalized, "/") {
		return "", dErrors.New(dErrors.CodePathNotAllowed, "path must be absolute")
	}
	// path.Clean clamps ".." at the root instead of failing, so walk the
	// segments first: a traversal that ever climbs above "/" is rejected,
	// not silently flattened.
	depth := 0
	for _, segment := range strings.Split(normalized[1:], "/") {
		switch segment {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", dErrors.New(dErrors.CodePathNotAllowed, "path escapes the filesystem root")
			}
		default:
			depth++
		}
	}
	return path.Clean(normalized), nil
}

// Check canonicalizes the requested path and verifies it falls under one of
// the allowlist roots. The returned path is the canonical form to use for
// the actual read.
func (a *Allowlist) Check(raw string) (string, error) {
	canonical, err := Canonicalize(raw)
	if err != nil {
		return "", err
	}
	probe := canonical
	if a.caseInsensitive {
		probe = strings.ToLower(probe)
	}
	for _, root := range a.roots {
		if probe == root {
			return canonical, nil
		}
		if strings.HasPrefix(probe, root+"/") {
			return canonical, nil
		}
		// A root of "/" admits everything absolute.
		if root == "/" {
			return canonical, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodePathNotAllowed, "path %q is outside the allowed roots", canonical)
}
