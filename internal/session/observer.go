package session

import "github.com/shehryarbajwa/deckard-mini/pkg/models"

// State is the lifecycle state of a controller
type State string

const (
	StateDisconnected State = "disconnected"
	StateEstablishing State = "establishing"
	StateActive       State = "active"
)

// Operation names the operator action holding the controls
type Operation string

const (
	OpUpload Operation = "upload"
	OpSpawn  Operation = "spawn"
)

// Observer receives the controller's notifications. Calls are made after
// the controller released its lock, one at a time, in the order the
// transitions happened. Notifications about a session that an Abort has
// already been reported for are dropped. Callbacks must not call back into
// the controller's operations.
type Observer interface {
	// ControlsChanged reports op taking (enabled=false) or giving back the controls.
	ControlsChanged(op Operation, enabled bool)
	// FileChecked reports the outcome of the .po name check of a local file.
	FileChecked(name string, ok bool)
	SessionEstablished(session string)
	// LocalesChanged carries the rebuilt locale list of module; selected is
	// the index to focus, or -1 to keep the current selection.
	LocalesChanged(module string, entries []models.LocaleEntry, selected int)
	UsersCountChanged(count int)
	ViewReady(target string)
	Aborted()
	Alert(message string)
}

// ViewHost is the surface showing the remote UI
type ViewHost interface {
	Navigate(target string)
}

// NopObserver ignores every notification. Embed it to implement only
// the callbacks you need.
type NopObserver struct{}

func (NopObserver) ControlsChanged(Operation, bool)                  {}
func (NopObserver) FileChecked(string, bool)                         {}
func (NopObserver) SessionEstablished(string)                        {}
func (NopObserver) LocalesChanged(string, []models.LocaleEntry, int) {}
func (NopObserver) UsersCountChanged(int)                            {}
func (NopObserver) ViewReady(string)                                 {}
func (NopObserver) Aborted()                                         {}
func (NopObserver) Alert(string)                                     {}

type nopViewHost struct{}

func (nopViewHost) Navigate(string) {}
