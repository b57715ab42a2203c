// Package gdpr masks or removes sensitive fields from raw rows before
// they leave the search layer. Masking is deterministic and total: the
// same input always yields the same masked output, so masked payloads
// remain safely cacheable.
package gdpr

import (
	"strings"

	"github.com/kailas-cloud/crmsearch/internal/domain"
)

// Config declares the per-tenant field classes.
type Config struct {
	Enabled bool
	// PIIFields are masked to a fixed-format partial.
	PIIFields []string
	// PHIFields are removed entirely unless the principal's role is allowed.
	PHIFields []string
	// PHIAllowedRoles may read PHI fields unmasked.
	PHIAllowedRoles []string
	// AddressFields are stripped to city/state granularity.
	AddressFields []string
}

// DefaultConfig returns the standard field classification.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		PIIFields:     []string{"email", "phone", "mobile", "ssn", "tax_id"},
		PHIFields:     []string{"medical_notes", "diagnosis", "health_plan"},
		AddressFields: []string{"street", "address_line1", "address_line2", "zip", "postal_code"},
	}
}

// Service applies GDPR masking.
type Service struct {
	cfg        Config
	pii        map[string]struct{}
	phi        map[string]struct{}
	address    map[string]struct{}
	phiAllowed map[string]struct{}
}

// New creates a GDPR filter from configuration.
func New(cfg Config) *Service {
	return &Service{
		cfg:        cfg,
		pii:        toSet(cfg.PIIFields),
		phi:        toSet(cfg.PHIFields),
		address:    toSet(cfg.AddressFields),
		phiAllowed: toSet(cfg.PHIAllowedRoles),
	}
}

// Enabled reports whether masking is active.
func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Apply masks a raw field map for the given principal and reports
// whether any masking occurred. The input map is never mutated.
func (s *Service) Apply(p domain.Principal, fields map[string]string) (map[string]string, bool) {
	out := make(map[string]string, len(fields))
	filtered := false

	phiAllowed := s.roleAllowed(p.Role)

	for k, v := range fields {
		key := strings.ToLower(k)
		switch {
		case s.has(s.phi, key):
			if phiAllowed {
				out[k] = v
			} else {
				filtered = true
			}
		case s.has(s.pii, key):
			out[k] = maskPII(key, v)
			filtered = true
		case s.has(s.address, key):
			filtered = true
		default:
			out[k] = v
		}
	}
	return out, filtered
}

func (s *Service) roleAllowed(role string) bool {
	_, ok := s.phiAllowed[strings.ToLower(role)]
	return ok
}

func (s *Service) has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// maskPII keeps a fixed-format partial: first character plus domain for
// emails, last four digits for phone- and SSN-like values.
func maskPII(key, value string) string {
	if value == "" {
		return ""
	}
	if key == "email" {
		return maskEmail(value)
	}
	return maskDigits(value)
}

func maskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		return "***"
	}
	return value[:1] + "***@" + value[at+1:]
}

func maskDigits(value string) string {
	digits := make([]rune, 0, len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return "***"
	}
	return "***" + string(digits[len(digits)-4:])
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[strings.ToLower(it)] = struct{}{}
	}
	return out
}
