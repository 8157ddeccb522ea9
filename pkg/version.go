package gncldf

var (
	// Version of gncldf. It is set during the build.
	Version = "v0.1.0"
	// Build timestamp. It is set during the build.
	Build = "n/a"
)
