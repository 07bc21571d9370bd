package models

import "time"

// TabState is the snapshot of one console tab pushed to the browser
type TabState struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	// Controller
	State   string `json:"state"`
	Session bool   `json:"session"`

	// Selectors
	Modules        []string      `json:"modules"`
	Module         string        `json:"module"`
	Screens        []string      `json:"screens"`
	Screen         string        `json:"screen"`
	Locales        []LocaleEntry `json:"locales"`
	SelectedLocale int           `json:"selectedLocale"`

	// Controls
	ControlsEnabled bool `json:"controlsEnabled"`
	UploadEnabled   bool `json:"uploadEnabled"`
	Spinner         bool `json:"spinner"`

	// Indicators
	UsersLabel string   `json:"usersLabel"`
	ViewSrc    string   `json:"viewSrc"`
	ShareURL   string   `json:"shareUrl"`
	Alerts     []string `json:"alerts,omitempty"`
}

// SelectRequest changes the selectors of a tab; empty fields are left alone
type SelectRequest struct {
	Module string `json:"module,omitempty"`
	Screen string `json:"screen,omitempty"`
	// Locale is an index into TabState.Locales
	Locale *int `json:"locale,omitempty"`
	// LocaleValue is a selector option value: a label of a built-in
	// language or the name of an uploaded translation
	LocaleValue string `json:"localeValue,omitempty"`
}
