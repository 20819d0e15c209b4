package policy

import "time"

// ResourceClass identifies the caching class of a catalog resource.
type ResourceClass string

const (
	// ClassStatic covers versioned script and stylesheet bundles.
	ClassStatic ResourceClass = "static"

	// ClassDynamic covers HTML documents and unclassified resources.
	ClassDynamic ResourceClass = "dynamic"

	// ClassAPI covers catalog API responses (diagnoses, drugs, search).
	ClassAPI ResourceClass = "api"

	// ClassImages covers image assets.
	ClassImages ResourceClass = "images"

	// ClassFonts covers font assets.
	ClassFonts ResourceClass = "fonts"
)

// StorageTier identifies which cache backend serves a resource class.
type StorageTier string

const (
	// TierMemory is the in-process bounded store.
	TierMemory StorageTier = "memory"

	// TierWorker is the out-of-process peer cache reached via the bridge.
	TierWorker StorageTier = "worker"

	// TierBrowser is the HTTP cache of the hosting client.
	TierBrowser StorageTier = "browser"

	// TierCDN is the edge cache in front of static assets.
	TierCDN StorageTier = "cdn"
)

// Profile describes the caching behavior for one resource class.
type Profile struct {
	// Class is the resource class this profile applies to.
	Class ResourceClass

	// TTL is how long an entry stays fresh.
	TTL time.Duration

	// MaxEntries bounds how many entries of this class a store keeps.
	MaxEntries int

	// StaleWhileRevalidate is the window after TTL during which a stale
	// entry may be served once while a fresh fetch runs. Zero disables it.
	StaleWhileRevalidate time.Duration

	// Tier is the storage backend responsible for this class.
	Tier StorageTier
}

// DefaultProfiles returns the default policy table for the catalog client.
func DefaultProfiles() map[ResourceClass]Profile {
	return map[ResourceClass]Profile{
		ClassStatic: {
			Class:                ClassStatic,
			TTL:                  24 * time.Hour,
			MaxEntries:           200,
			StaleWhileRevalidate: time.Hour,
			Tier:                 TierCDN,
		},
		ClassDynamic: {
			Class:                ClassDynamic,
			TTL:                  5 * time.Minute,
			MaxEntries:           100,
			StaleWhileRevalidate: 60 * time.Second,
			Tier:                 TierMemory,
		},
		ClassAPI: {
			Class:                ClassAPI,
			TTL:                  2 * time.Minute,
			MaxEntries:           300,
			StaleWhileRevalidate: 30 * time.Second,
			Tier:                 TierMemory,
		},
		ClassImages: {
			Class:      ClassImages,
			TTL:        7 * 24 * time.Hour,
			MaxEntries: 150,
			Tier:       TierBrowser,
		},
		ClassFonts: {
			Class:      ClassFonts,
			TTL:        30 * 24 * time.Hour,
			MaxEntries: 30,
			Tier:       TierCDN,
		},
	}
}
