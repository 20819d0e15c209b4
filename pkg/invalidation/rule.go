package invalidation

import "github.com/medref/catalog-cache/pkg/policy"

// Trigger identifies what causes a rule to fire.
type Trigger string

const (
	// TriggerTime fires on every periodic sweep tick.
	TriggerTime Trigger = "time"

	// TriggerVersionChange fires when the persisted app version marker
	// differs from the running version.
	TriggerVersionChange Trigger = "versionChange"

	// TriggerEvent fires on a named application event.
	TriggerEvent Trigger = "event"
)

// Application event names dispatched by the surrounding application.
const (
	EventUserLogin  = "userLogin"
	EventUserLogout = "userLogout"
	EventDataUpdate = "dataUpdate"
	EventAppUpdate  = "appUpdate"
)

// Rule binds a trigger to a target pattern set and affected tiers.
type Rule struct {
	// Trigger is what causes this rule to fire.
	Trigger Trigger

	// Event is the application event name; set only when Trigger is
	// TriggerEvent.
	Event string

	// TargetPatterns are regular expressions matched against cache keys,
	// applied in order.
	TargetPatterns []string

	// AffectedTiers restricts the fan-out. Empty means the memory tier.
	AffectedTiers []policy.StorageTier
}

// DefaultRules returns the rule set the catalog client ships with:
// session boundaries drop API responses, data mutations drop API
// responses in memory and the worker tier, and app updates clear
// everything including the worker tier.
func DefaultRules() []Rule {
	return []Rule{
		{
			Trigger:        TriggerEvent,
			Event:          EventUserLogin,
			TargetPatterns: []string{"/api/.*"},
			AffectedTiers:  []policy.StorageTier{policy.TierMemory},
		},
		{
			Trigger:        TriggerEvent,
			Event:          EventUserLogout,
			TargetPatterns: []string{"/api/.*"},
			AffectedTiers:  []policy.StorageTier{policy.TierMemory, policy.TierWorker},
		},
		{
			Trigger:        TriggerEvent,
			Event:          EventDataUpdate,
			TargetPatterns: []string{"/api/diagnoses.*", "/api/drugs.*", "/api/search.*"},
			AffectedTiers:  []policy.StorageTier{policy.TierMemory, policy.TierWorker},
		},
		{
			Trigger:        TriggerEvent,
			Event:          EventAppUpdate,
			TargetPatterns: []string{".*"},
			AffectedTiers:  []policy.StorageTier{policy.TierMemory, policy.TierWorker},
		},
		{
			Trigger:        TriggerVersionChange,
			TargetPatterns: []string{".*"},
			AffectedTiers:  []policy.StorageTier{policy.TierMemory, policy.TierWorker},
		},
	}
}
