package models

// LocaleKind tells built-in languages from translations uploaded in a session
type LocaleKind string

const (
	BaseLocale  LocaleKind = "base"
	CustomEntry LocaleKind = "custom"
)

// LocaleEntry is one option of the locale selector.
// Code is what goes on the wire; Label is only for display.
type LocaleEntry struct {
	Kind  LocaleKind `json:"kind"`
	Code  string     `json:"code"`
	Label string     `json:"label"`
}

// IsCustom reports whether the entry was contributed by an upload
func (e LocaleEntry) IsCustom() bool {
	return e.Kind == CustomEntry
}

// DesiredView is the module/screen/locale the operator wants to preview
type DesiredView struct {
	Module string      `json:"module"`
	Screen string      `json:"screen"`
	Locale LocaleEntry `json:"locale"`
}
