package runtime

// Set at build time via ldflags.
var (
	Version   = "dev"
	GitCommit = "none"
	Timestamp = "unknown"
)
