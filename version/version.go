package version

// Set at build time with -ldflags "-X stackcollapse-callgrind/version.version=..."
var version = "dev"

func VersionNumber() string {
	return version
}
