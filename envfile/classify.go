package envfile

import "strings"

// Category is the kind of rewrite a key receives.
type Category int

const (
	CategoryOther Category = iota
	CategoryTimestamp
	CategoryBuild
)

func (c Category) String() string {
	switch c {
	case CategoryTimestamp:
		return "timestamp"
	case CategoryBuild:
		return "build"
	default:
		return "other"
	}
}

// NormalizeKey trims whitespace and an optional leading "export " from a raw key.
func NormalizeKey(raw string) string {
	key := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(key, "export "); ok {
		key = strings.TrimSpace(rest)
	}
	return key
}

// IsTimestampKey reports whether key should hold a refreshed date.
func IsTimestampKey(key string) bool {
	return strings.Contains(key, "_MODIFIED")
}

// IsFullTimestampKey reports whether a timestamp key wants the full
// date-time form instead of the calendar date.
func IsFullTimestampKey(key string) bool {
	return strings.Contains(key, "_FULL") || strings.HasPrefix(key, "FULL_")
}

// IsBuildKey reports whether key holds a build counter.
func IsBuildKey(key string) bool {
	return strings.Contains(key, "_BUILD") || strings.HasPrefix(key, "BUILD_")
}

// Classify returns the category of a normalized key. A key matching both
// rules reports CategoryTimestamp; the rewriter still applies both.
func Classify(key string) Category {
	switch {
	case IsTimestampKey(key):
		return CategoryTimestamp
	case IsBuildKey(key):
		return CategoryBuild
	default:
		return CategoryOther
	}
}
