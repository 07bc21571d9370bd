package catalog

import (
	"strings"

	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// Delimiter separates a locale code from its display name in option labels.
// It only exists for display and never reaches the upstream.
const Delimiter = '\u2003'

// BaseEntry builds the selector entry of a built-in language.
func BaseEntry(code string) models.LocaleEntry {
	label := code
	if name := LanguageName(code); name != "" {
		label = code + string(Delimiter) + name
	}
	return models.LocaleEntry{Kind: models.BaseLocale, Code: code, Label: label}
}

// CustomEntry builds the selector entry of an uploaded translation.
func CustomEntry(name string) models.LocaleEntry {
	return models.LocaleEntry{Kind: models.CustomEntry, Code: name, Label: name}
}

// Decode turns a raw option value back into a tagged entry. Values carrying
// the delimiter are built-in languages whose code is everything before it;
// anything else is the name of an uploaded translation.
func Decode(value string) models.LocaleEntry {
	if i := strings.IndexRune(value, Delimiter); i >= 0 {
		return models.LocaleEntry{Kind: models.BaseLocale, Code: value[:i], Label: value}
	}
	return CustomEntry(value)
}
