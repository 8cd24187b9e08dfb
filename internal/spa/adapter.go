package spa

import "strings"

// Codec is the per-model translation pair. Both methods are pure: same
// input always yields the same output, with no cross-cycle state.
type Codec interface {
	// Normalize converts one raw telemetry payload into the canonical
	// snapshot. It never fails; absent or malformed attributes resolve
	// to documented defaults.
	Normalize(raw RawTelemetry) Snapshot

	// Encode converts one canonical command into the minimal vendor
	// payload for that change. Unsupported kinds yield an empty payload.
	Encode(cmd Command) Payload
}

// Adapter bundles a model identifier, its selection metadata, and its
// codec. Adapters are created once at process start and are immutable.
type Adapter struct {
	// ID is unique within a registry.
	ID string

	// ProductNames are the exact vendor product names this adapter
	// claims during name-based selection.
	ProductNames []string

	// Matches is the structural signature predicate over raw telemetry,
	// used when product metadata is absent or untrusted.
	Matches func(raw RawTelemetry) bool

	// Priority orders signature matches; higher wins. Ties resolve to
	// registration order.
	Priority int

	// Features drives which model-specific capabilities are exposed
	// while this adapter is bound.
	Features Features

	Codec
}

// Features describes the optional controls a model carries beyond the
// common power/heat/filter/temperature set.
type Features struct {
	// WaveLevels means massage intensity is a three-level enum rather
	// than the legacy on/off bubble toggle.
	WaveLevels bool

	// Jet means the model has a separate hydrojet toggle.
	Jet bool
}

// MatchesName reports whether the trimmed product name is one of the
// adapter's known product names.
func (a *Adapter) MatchesName(productName string) bool {
	name := strings.TrimSpace(productName)
	if name == "" {
		return false
	}
	for _, n := range a.ProductNames {
		if n == name {
			return true
		}
	}
	return false
}
