package featureflag

type Flag string

const (
	// Lets the quadtree double its root region instead of failing when the
	// flake outgrows it.
	FlagAutoResize Flag = "AUTO_RESIZE"

	// Makes reading a flake file ending with an incomplete record fail.
	FlagStrictFlake Flag = "STRICT_FLAKE"

	// Disables the websocket point feed on the admin server.
	FlagDisableFeed Flag = "DISABLE_FEED"
)

// Flags returns every known flag.
func Flags() []Flag {
	return []Flag{
		FlagAutoResize,
		FlagStrictFlake,
		FlagDisableFeed,
	}
}
