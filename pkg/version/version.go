package version

// Version represents the current version of gisearch
const Version = "0.4.0"

// BuildVersion returns the version string for display
func BuildVersion() string {
	return "gisearch version " + Version
}

// UserAgent is sent with every request to the CMS endpoint.
func UserAgent() string {
	return "gisearch/" + Version
}
