// Package locale validates locale codes and rewrites locale-prefixed paths.
package locale

import "strings"

// Locale is a supported UI locale code.
type Locale string

// Supported locales. The set is closed: anything else falls back to the
// configured default.
const (
	EN Locale = "en"
	ZH Locale = "zh"
)

var supported = map[Locale]struct{}{EN: {}, ZH: {}}

// IsSupported reports whether code is a member of the closed locale set.
func IsSupported(code string) bool {
	_, ok := supported[Locale(code)]
	return ok
}

// Default validates a configured fallback locale, returning EN when the
// value is outside the supported set.
func Default(configured string) Locale {
	if IsSupported(configured) {
		return Locale(configured)
	}
	return EN
}

// PathWithLocale rewrites the first path segment when it is already a locale
// code, otherwise prefixes the path with the new locale. Used to keep a user
// on the equivalent page when switching language.
func PathWithLocale(path string, next Locale) string {
	segments := strings.Split(path, "/")
	if len(segments) > 1 && IsSupported(segments[1]) {
		segments[1] = string(next)
		if joined := strings.Join(segments, "/"); joined != "" {
			return joined
		}
		return "/"
	}
	if strings.HasPrefix(path, "/") {
		return "/" + string(next) + path
	}
	return "/" + string(next) + "/" + path
}
