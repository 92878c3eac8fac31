// Package version carries build metadata set via -ldflags at release time.
package version

// Version, Commit, and BuildDate are overridden at build time with
// -ldflags "-X github.com/brinehollow/placewall/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// String renders the one-line version banner printed by `placewall version`.
func String() string {
	return Version + " (" + Commit + ", built " + BuildDate + ")"
}
