package ignore

// DefaultSkipDirs lists directory names that are never descended into.
// These hold dependencies, version-control metadata or build output and
// never contain project env files worth stamping.
var DefaultSkipDirs = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Dependencies
	"node_modules",
	"bower_components",
	".yarn",
	".venv",
	"__pycache__",

	// Build output
	"dist",
	"build",

	// Framework caches
	".next",
	".nuxt",
	".cache",
	".parcel-cache",
}

var defaultSkipSet = func() map[string]bool {
	set := make(map[string]bool, len(DefaultSkipDirs))
	for _, name := range DefaultSkipDirs {
		set[name] = true
	}
	return set
}()
