package featureflag

type Flag string

const (
	// Stops detector contacts from being computed and streamed.
	FlagDisableContactEvents Flag = "DISABLE_CONTACT_EVENTS"

	// Stops the per-frame quadtree snapshots read by the debug API.
	FlagDisableInspectSnapshot Flag = "DISABLE_INSPECT_SNAPSHOT"

	FlagDisableDebugAPI Flag = "DISABLE_DEBUG_API"

	// Skips the world_state message sent after a client joins a world.
	FlagDisableWorldState Flag = "DISABLE_WORLD_STATE"

	// Rejects body add, update and remove requests from clients.
	FlagDisableBodyControl Flag = "DISABLE_BODY_CONTROL"
)

var knownFlags = map[Flag]struct{}{
	FlagDisableContactEvents:   {},
	FlagDisableInspectSnapshot: {},
	FlagDisableDebugAPI:        {},
	FlagDisableWorldState:      {},
	FlagDisableBodyControl:     {},
}

// IsKnown reports whether the service reacts to the flag.
func IsKnown(f Flag) bool {
	_, ok := knownFlags[f]
	return ok
}
