package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// TargetKind classifies a share target.
type TargetKind string

const (
	TargetEmail  TargetKind = "email"
	TargetDomain TargetKind = "domain"
	TargetGlob   TargetKind = "glob"
)

// ErrInvalidTarget is wrapped by every target classification failure.
var ErrInvalidTarget = errors.New("invalid share target")

const globMeta = "*?[{"

// ParseTarget normalizes a target to lower case and classifies it. A target
// containing glob metacharacters is a glob and must compile; otherwise a
// target with "@" is an email address and anything else is a domain.
func ParseTarget(target string) (string, TargetKind, error) {
	t := strings.ToLower(strings.TrimSpace(target))
	if t == "" {
		return "", "", fmt.Errorf("%w: empty", ErrInvalidTarget)
	}

	if strings.ContainsAny(t, globMeta) {
		if _, err := glob.Compile(t); err != nil {
			return "", "", fmt.Errorf("%w: %q: %v", ErrInvalidTarget, target, err)
		}
		return t, TargetGlob, nil
	}

	if strings.Contains(t, "@") {
		if _, ok := emailDomain(t); !ok {
			return "", "", fmt.Errorf("%w: %q is not an email address", ErrInvalidTarget, target)
		}
		return t, TargetEmail, nil
	}

	if strings.ContainsAny(t, " \t/") || strings.HasPrefix(t, ".") || strings.HasSuffix(t, ".") {
		return "", "", fmt.Errorf("%w: %q is not a domain", ErrInvalidTarget, target)
	}
	return t, TargetDomain, nil
}

// emailDomain returns the domain part of a lowercased address.
func emailDomain(email string) (string, bool) {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", false
	}
	return domain, true
}
