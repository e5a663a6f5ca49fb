package ir

// Version constants for the IR encoding and the relq toolchain.
const (
	// IRVersion is the version of the canonical shape encoding. Bumping it
	// invalidates every previously computed shape hash.
	IRVersion = "1"

	// ToolVersion is the relq release version reported by the CLI.
	ToolVersion = "0.1.0"
)
