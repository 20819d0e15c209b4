// Package policy maps catalog resource identifiers to cache keys and
// caching policies.
//
// The resolver is a pure function over its inputs: the same URL and
// parameter set always produce the same key and profile, regardless of
// parameter insertion order.
//
// # Resource Classes
//
// Resources are classified by path pattern and file extension:
//
//   - api:     path contains the API marker (e.g. /api/diagnoses, /api/drugs)
//   - static:  .js, .mjs, .css bundles
//   - images:  .png, .jpg, .jpeg, .gif, .svg, .webp, .ico
//   - fonts:   .woff, .woff2, .ttf, .otf, .eot
//   - dynamic: HTML documents and anything unclassified (fallback)
//
// Every resource resolves to exactly one Profile; unresolvable resources
// fall back to the dynamic profile.
//
// # Basic Usage
//
//	resolver := policy.NewResolver(policy.DefaultProfiles())
//
//	key, profile := resolver.Resolve("/api/diagnoses", map[string]string{
//		"icd10": "E11.9",
//		"page":  "1",
//	})
//	// key == "/api/diagnoses?icd10=E11.9&page=1"
//	// profile.Tier == policy.TierMemory
package policy
