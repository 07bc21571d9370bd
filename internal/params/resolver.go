// Package params turns the query string a tab was opened with into its
// initial selection and initial action.
package params

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"github.com/shehryarbajwa/deckard-mini/internal/catalog"
	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// Action is what a tab does right after opening
type Action int

const (
	// ActionNone waits for the operator
	ActionNone Action = iota
	// ActionRequestRemoteFile asks the upstream to fetch a named translation
	ActionRequestRemoteFile
	// ActionAutoDisplay spawns the preselected view
	ActionAutoDisplay
)

func (a Action) String() string {
	switch a {
	case ActionRequestRemoteFile:
		return "request-remote-file"
	case ActionAutoDisplay:
		return "auto-display"
	default:
		return "none"
	}
}

// Initial is the resolved starting point of a tab
type Initial struct {
	Action     Action
	Module     string
	Screen     string
	Locale     int // index into the catalog's base locales
	RemoteFile string
	// AutoDisplay is armed when the view must be displayed as soon as a
	// session exists; whoever spawns first consumes it.
	AutoDisplay *OneShot
}

// Resolve reads the locale, module, ui, file and display parameters.
// acceptLanguage is the browser's Accept-Language header, used when no
// locale parameter is given. A file parameter without a valid module is a
// usage error; the returned Initial is still usable with ActionNone.
func Resolve(query url.Values, acceptLanguage string, cat *catalog.Catalog) (Initial, error) {
	initial := Initial{Action: ActionNone, AutoDisplay: NewOneShot(false)}

	base := cat.BaseLocales()
	locale := query.Get("locale")
	if locale == "" {
		locale = BrowserLocale(acceptLanguage)
	}
	if i := findLocale(base, locale); i >= 0 {
		initial.Locale = i
	}

	if len(cat.Modules) > 0 {
		initial.Module = cat.Modules[0].Name
	}
	validModule := false
	if name := query.Get("module"); name != "" {
		if _, ok := cat.Module(name); ok {
			initial.Module = name
			validModule = true
		}
	}

	if m, ok := cat.Module(initial.Module); ok && len(m.Screens) > 0 {
		initial.Screen = m.Screens[0]
		if ui := query.Get("ui"); ui != "" {
			for _, s := range m.Screens {
				if s == ui {
					initial.Screen = ui
					break
				}
			}
		}
	}

	display := query.Get("display") == "1"
	if file := query.Get("file"); file != "" {
		if !validModule {
			return initial, deckerr.InvalidModule(query.Get("module"))
		}
		initial.Action = ActionRequestRemoteFile
		initial.RemoteFile = file
		initial.AutoDisplay = NewOneShot(display)
		return initial, nil
	}
	if display {
		initial.Action = ActionAutoDisplay
		initial.AutoDisplay = NewOneShot(true)
	}
	return initial, nil
}

// BrowserLocale converts the first Accept-Language entry into the
// upstream's underscore form. Plain English maps to POSIX.
func BrowserLocale(acceptLanguage string) string {
	if acceptLanguage == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return ""
	}
	locale := strings.Replace(tags[0].String(), "-", "_", 1)
	if locale == "en" {
		return "POSIX"
	}
	return locale
}

func findLocale(entries []models.LocaleEntry, prefix string) int {
	if prefix == "" {
		return -1
	}
	for i, e := range entries {
		if strings.HasPrefix(e.Label, prefix) {
			return i
		}
	}
	return -1
}
