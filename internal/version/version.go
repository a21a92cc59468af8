package version

// Tag holds the build version for the autoinvoice binaries. It can be overridden
// at build time via:
// go build -ldflags "-X github.com/autoinvoice/autoinvoice/internal/version.Tag=v1.2.3".
var Tag = "dev"

// String returns the current version, defaulting to "dev" when Tag is unset.
func String() string {
	if Tag == "" {
		return "dev"
	}
	return Tag
}

// UserAgent is sent on outbound webhook and provider API calls.
func UserAgent() string {
	return "autoinvoice/" + String()
}
