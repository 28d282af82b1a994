package version

var (
	// Version is the pipeline release; it is stamped into metadata.json.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build identity for the -version flag.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
