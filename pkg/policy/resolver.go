package policy

import (
	"net/url"
	"sort"
	"strings"
)

// APIMarker is the path segment identifying catalog API requests.
const APIMarker = "/api/"

// extension sets per resource class
var (
	staticExtensions = map[string]bool{
		".js": true, ".mjs": true, ".css": true,
	}
	imageExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".svg": true, ".webp": true, ".ico": true,
	}
	fontExtensions = map[string]bool{
		".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	}
)

// Resolver maps resource URLs to cache keys and policy profiles.
// It performs no I/O and holds no mutable state; a single Resolver
// may be shared freely.
type Resolver struct {
	profiles map[ResourceClass]Profile
}

// NewResolver creates a resolver over the given policy table.
// Classes missing from the table fall back to the dynamic default.
func NewResolver(profiles map[ResourceClass]Profile) *Resolver {
	merged := DefaultProfiles()
	for class, p := range profiles {
		merged[class] = p
	}
	return &Resolver{profiles: merged}
}

// Resolve returns the canonical cache key and policy profile for a
// resource URL with optional request parameters.
func (r *Resolver) Resolve(resourceURL string, params map[string]string) (string, Profile) {
	return Key(resourceURL, params), r.Profile(Classify(resourceURL))
}

// Profile returns the policy profile for a resource class.
// Unknown classes resolve to the dynamic profile.
func (r *Resolver) Profile(class ResourceClass) Profile {
	if p, ok := r.profiles[class]; ok {
		return p
	}
	return r.profiles[ClassDynamic]
}

// Key builds the canonical cache key: the resource URL with parameters
// appended as a sorted query string. Two calls with the same parameters
// in different insertion order produce the same key.
func Key(resourceURL string, params map[string]string) string {
	if len(params) == 0 {
		return resourceURL
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(resourceURL)
	if strings.Contains(resourceURL, "?") {
		sb.WriteByte('&')
	} else {
		sb.WriteByte('?')
	}
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[k]))
	}
	return sb.String()
}

// Classify determines the resource class of a URL by path pattern and
// file extension. Unmatched resources classify as dynamic.
func Classify(resourceURL string) ResourceClass {
	path := resourceURL
	if u, err := url.Parse(resourceURL); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.ToLower(path)

	// API marker wins over extensions so /api/drugs/export.json stays api.
	if strings.Contains(path, APIMarker) || strings.HasSuffix(path, strings.TrimSuffix(APIMarker, "/")) {
		return ClassAPI
	}

	ext := path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		ext = path[idx:]
	} else {
		ext = ""
	}

	switch {
	case staticExtensions[ext]:
		return ClassStatic
	case imageExtensions[ext]:
		return ClassImages
	case fontExtensions[ext]:
		return ClassFonts
	case ext == ".html" || ext == ".htm":
		return ClassDynamic
	default:
		return ClassDynamic
	}
}
