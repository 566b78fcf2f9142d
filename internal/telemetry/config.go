package telemetry

import (
	"os"
)

var (
	observeEnabled         bool
	persistPayloadsEnabled bool
)

func init() {
	// Read once at process start. Mid-run environment changes have no effect.
	observeEnabled = os.Getenv("AGT_OBSERVE_JSON") == "1"

	// Persist payloads implies observation unless AGT_OBSERVE_JSON says otherwise.
	persistPayloadsEnabled = os.Getenv("AGT_PERSIST_API_PAYLOADS") == "1"
	if _, ok := os.LookupEnv("AGT_OBSERVE_JSON"); !ok && persistPayloadsEnabled {
		observeEnabled = true
	}
}

// ObserveEnabled reports whether JSONL emission was enabled at startup.
func ObserveEnabled() bool {
	// Preserve startup-evaluated default, but allow tests to enable mid-run via env override.
	if os.Getenv("AGT_OBSERVE_JSON") == "1" {
		return true
	}
	return observeEnabled
}

// PersistPayloadsEnabled reports whether request and response payloads are attached to model events.
func PersistPayloadsEnabled() bool {
	if os.Getenv("AGT_PERSIST_API_PAYLOADS") == "1" {
		return true
	}
	return persistPayloadsEnabled
}
