package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"dispatch-routing-service/internal/domain"
)

// ResolveAddress derives one canonical address line for a stop from the
// layered source chain. Each field independently falls through stop-level
// override -> customer profile -> quote record; resolved parts are joined
// with commas and blank parts omitted. Returns "" when nothing resolves.
//
// The resolver is pure: it never touches storage or providers.
func ResolveAddress(stop *domain.ServiceStop, customer *domain.CustomerProfile, quote *domain.QuoteRecord) string {
	if stop == nil {
		return ""
	}

	sources := make([]domain.AddressFields, 0, 3)
	sources = append(sources, stop.Address)
	if customer != nil {
		sources = append(sources, customer.Address)
	}
	if quote != nil {
		sources = append(sources, quote.Address)
	}

	pick := func(get func(domain.AddressFields) string) string {
		for _, src := range sources {
			if v := strings.TrimSpace(get(src)); v != "" {
				return v
			}
		}
		return ""
	}

	parts := []string{
		pick(func(a domain.AddressFields) string { return a.Street }),
		pick(func(a domain.AddressFields) string { return a.Line2 }),
		pick(func(a domain.AddressFields) string { return a.City }),
		pick(func(a domain.AddressFields) string { return a.State }),
		pick(func(a domain.AddressFields) string { return a.PostalCode }),
	}

	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			joined = append(joined, p)
		}
	}

	return strings.Join(joined, ", ")
}

// AddressHash returns a stable change-detection hash of an address line,
// recorded on geocode jobs so stale snapshots are visible in diagnostics.
func AddressHash(addressLine string) string {
	sum := sha256.Sum256([]byte(strings.Join(strings.Fields(addressLine), " ")))
	return hex.EncodeToString(sum[:16])
}
