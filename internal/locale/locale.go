// Package locale resolves the interface language from request paths and headers.
package locale

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/eRom/health-sub001/internal/models"
)

// Default is used when neither the path nor the browser names a supported locale.
const Default = models.LocaleFR

var matcher = language.NewMatcher([]language.Tag{
	language.French,
	language.English,
})

// Supported reports whether s is a supported locale code.
func Supported(s string) bool {
	return s == string(models.LocaleFR) || s == string(models.LocaleEN)
}

// FromPath splits a locale prefix off path. It returns the locale, whether
// the path carried one, and the remaining path (always starting with "/").
func FromPath(path string) (models.Locale, bool, string) {
	trimmed := strings.TrimPrefix(path, "/")
	first, rest, _ := strings.Cut(trimmed, "/")
	if Supported(first) {
		return models.Locale(first), true, "/" + rest
	}
	if path == "" {
		path = "/"
	}
	return Default, false, path
}

// Negotiate picks the best supported locale for an Accept-Language header.
func Negotiate(acceptLanguage string) models.Locale {
	if acceptLanguage == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	if idx == 1 {
		return models.LocaleEN
	}
	return models.LocaleFR
}

// Path prefixes p with the locale segment.
func Path(l models.Locale, p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "/" + string(l) + p
}
