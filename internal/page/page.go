// Package page keeps what a console tab shows: the selectors, the locale
// list, the indicators and the remote view target. It binds to the session
// controller as its Observer and ViewHost.
package page

import (
	"fmt"
	"sync"
	"time"

	"github.com/shehryarbajwa/deckard-mini/internal/catalog"
	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/internal/params"
	"github.com/shehryarbajwa/deckard-mini/internal/session"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

const (
	// LabelDisconnected is the users indicator without a session
	LabelDisconnected = "disconnected"

	maxAlerts = 20
)

// Status reports the lifecycle state shown on the page
type Status interface {
	State() session.State
}

// Options configures a Page
type Options struct {
	ID         string
	CreatedAt  time.Time
	Origin     string
	RemoteFile string
	Initial    params.Initial
}

// Page is the presentation model of one tab
type Page struct {
	id         string
	createdAt  time.Time
	origin     string
	remoteFile string
	cat        *catalog.Catalog
	registry   *catalog.Registry

	mu       sync.Mutex
	status   Status
	session  bool
	module   string
	screen   string
	entries  []models.LocaleEntry
	selected int
	busy     map[session.Operation]bool
	fileOK   bool
	waiting  bool
	users    string
	viewSrc  string
	alerts   []string

	subs    map[int]chan models.TabState
	nextSub int
}

// New creates a page showing the initial selection
func New(cat *catalog.Catalog, registry *catalog.Registry, opts Options) *Page {
	p := &Page{
		id:         opts.ID,
		createdAt:  opts.CreatedAt,
		origin:     opts.Origin,
		remoteFile: opts.RemoteFile,
		cat:        cat,
		registry:   registry,
		module:     opts.Initial.Module,
		screen:     opts.Initial.Screen,
		busy:       make(map[session.Operation]bool),
		fileOK:     true,
		users:      LabelDisconnected,
		subs:       make(map[int]chan models.TabState),
	}
	p.entries = registry.Locales(p.module)
	if opts.Initial.Locale >= 0 && opts.Initial.Locale < len(p.entries) {
		p.selected = opts.Initial.Locale
	}
	return p
}

// Attach sets the controller whose state the page reports
func (p *Page) Attach(status Status) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
}

// View returns the current selection
func (p *Page) View() models.DesiredView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Select changes the selectors. Switching module resets the screen to the
// module's first one and rebuilds the locale list for it. The selectors are
// locked while an upload runs.
func (p *Page) Select(req models.SelectRequest) error {
	p.mu.Lock()

	if p.busy[session.OpUpload] {
		p.mu.Unlock()
		return deckerr.Busy(string(session.OpUpload))
	}

	if req.Module != "" && req.Module != p.module {
		m, ok := p.cat.Module(req.Module)
		if !ok {
			p.mu.Unlock()
			return deckerr.NotFound("module", req.Module)
		}
		p.module = m.Name
		p.screen = ""
		if len(m.Screens) > 0 {
			p.screen = m.Screens[0]
		}
		p.rebuildLocked(-1)
	}

	if req.Screen != "" {
		m, _ := p.cat.Module(p.module)
		if !contains(m.Screens, req.Screen) {
			p.mu.Unlock()
			return deckerr.NotFound("screen", req.Screen)
		}
		p.screen = req.Screen
	}

	if req.Locale != nil {
		i := *req.Locale
		if i < 0 || i >= len(p.entries) {
			p.mu.Unlock()
			return deckerr.New(deckerr.ErrCodeValidation, fmt.Sprintf("locale index %d out of range", i))
		}
		p.selected = i
	}

	if req.LocaleValue != "" {
		i := indexOf(p.entries, catalog.Decode(req.LocaleValue))
		if i < 0 {
			p.mu.Unlock()
			return deckerr.NotFound("locale", req.LocaleValue)
		}
		p.selected = i
	}

	p.publishLocked()
	return nil
}

// Snapshot returns what the tab currently shows
func (p *Page) Snapshot() models.TabState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// ShareURL returns the link reopening the current selection
func (p *Page) ShareURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return params.ViewURL(p.origin, p.viewLocked(), p.remoteFile)
}

// Subscribe returns a channel receiving a snapshot after every change,
// starting with the current one. Slow readers only miss intermediate
// snapshots. cancel closes the channel.
func (p *Page) Subscribe() (<-chan models.TabState, func()) {
	ch := make(chan models.TabState, 1)

	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	ch <- p.snapshotLocked()
	p.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			if _, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(ch)
			}
			p.mu.Unlock()
		})
	}
	return ch, cancel
}

// Close ends every subscription
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.subs {
		close(ch)
		delete(p.subs, id)
	}
}

func (p *Page) ControlsChanged(op session.Operation, enabled bool) {
	p.mu.Lock()
	p.busy[op] = !enabled
	p.publishLocked()
}

func (p *Page) FileChecked(_ string, ok bool) {
	p.mu.Lock()
	p.fileOK = ok
	p.publishLocked()
}

func (p *Page) SessionEstablished(string) {
	p.mu.Lock()
	p.session = true
	p.publishLocked()
}

func (p *Page) LocalesChanged(module string, entries []models.LocaleEntry, selected int) {
	p.mu.Lock()
	if module != p.module {
		// the operator moved on while the upload was running
		p.rebuildLocked(-1)
	} else {
		p.entries = entries
		p.clampLocked(selected)
	}
	p.publishLocked()
}

func (p *Page) UsersCountChanged(count int) {
	p.mu.Lock()
	p.users = fmt.Sprintf("Users online: %d", count)
	p.publishLocked()
}

func (p *Page) ViewReady(string) {
	p.mu.Lock()
	p.waiting = false
	p.publishLocked()
}

func (p *Page) Aborted() {
	p.mu.Lock()
	p.session = false
	p.waiting = false
	p.users = LabelDisconnected
	p.rebuildLocked(-1)
	p.publishLocked()
}

func (p *Page) Alert(message string) {
	p.mu.Lock()
	p.alerts = append(p.alerts, message)
	if len(p.alerts) > maxAlerts {
		p.alerts = p.alerts[len(p.alerts)-maxAlerts:]
	}
	p.publishLocked()
}

// Navigate points the tab's view frame at target. The spinner stays on
// until the controller reports the view ready.
func (p *Page) Navigate(target string) {
	p.mu.Lock()
	p.viewSrc = target
	p.waiting = true
	p.publishLocked()
}

func (p *Page) viewLocked() models.DesiredView {
	view := models.DesiredView{Module: p.module, Screen: p.screen}
	if p.selected < len(p.entries) {
		view.Locale = p.entries[p.selected]
	}
	return view
}

func (p *Page) rebuildLocked(selected int) {
	p.entries = p.registry.Locales(p.module)
	p.clampLocked(selected)
}

func (p *Page) clampLocked(selected int) {
	if selected >= 0 && selected < len(p.entries) {
		p.selected = selected
	}
	if p.selected >= len(p.entries) {
		p.selected = 0
	}
}

func (p *Page) snapshotLocked() models.TabState {
	state := session.StateDisconnected
	if p.status != nil {
		state = p.status.State()
	}
	busy := false
	for _, b := range p.busy {
		busy = busy || b
	}

	m, _ := p.cat.Module(p.module)
	return models.TabState{
		ID:              p.id,
		CreatedAt:       p.createdAt,
		State:           string(state),
		Session:         p.session,
		Modules:         p.cat.ModuleNames(),
		Module:          p.module,
		Screens:         append([]string(nil), m.Screens...),
		Screen:          p.screen,
		Locales:         append([]models.LocaleEntry(nil), p.entries...),
		SelectedLocale:  p.selected,
		ControlsEnabled: !busy,
		UploadEnabled:   !busy && p.fileOK,
		Spinner:         busy || p.waiting,
		UsersLabel:      p.users,
		ViewSrc:         p.viewSrc,
		ShareURL:        params.ViewURL(p.origin, p.viewLocked(), p.remoteFile),
		Alerts:          append([]string(nil), p.alerts...),
	}
}

// publishLocked hands the new snapshot to subscribers and releases p.mu
func (p *Page) publishLocked() {
	snap := p.snapshotLocked()
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
	p.mu.Unlock()
}

// indexOf finds an entry by kind and code; labels are display only
func indexOf(entries []models.LocaleEntry, e models.LocaleEntry) int {
	for i, cur := range entries {
		if cur.Kind == e.Kind && cur.Code == e.Code {
			return i
		}
	}
	return -1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
