// Package version carries the build identity stamped into the binary with
// -ldflags at release time.
package version

// Overridden by the linker; the zero build reports "dev".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build identity as a single token for logs and banners.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
