package params

import (
	"net/url"
	"strings"

	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// ViewURL rebuilds a link that reopens view. Built-in locales travel as a
// locale parameter; a translation the upstream fetched by name travels as
// a file parameter. A translation uploaded from the operator's disk cannot
// be shared, so the link then carries no locale and does not auto-display.
func ViewURL(origin string, view models.DesiredView, remoteFile string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(origin, "/"))
	b.WriteString("/?module=")
	b.WriteString(url.QueryEscape(view.Module))
	b.WriteString("&ui=")
	b.WriteString(url.QueryEscape(view.Screen))

	switch {
	case !view.Locale.IsCustom():
		b.WriteString("&locale=")
		b.WriteString(url.QueryEscape(view.Locale.Code))
		b.WriteString("&display=1")
	case remoteFile != "" && view.Locale.Code == remoteFile:
		b.WriteString("&file=")
		b.WriteString(url.QueryEscape(view.Locale.Code))
		b.WriteString("&display=1")
	}
	return b.String()
}
