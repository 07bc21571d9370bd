// Package console keeps the open tabs: one session controller and one page
// per browser tab, alive while the tab holds an event stream.
package console

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/deckard-mini/internal/catalog"
	"github.com/shehryarbajwa/deckard-mini/internal/clock"
	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/internal/logging"
	"github.com/shehryarbajwa/deckard-mini/internal/page"
	"github.com/shehryarbajwa/deckard-mini/internal/params"
	"github.com/shehryarbajwa/deckard-mini/internal/session"
)

// Options configures a Manager
type Options struct {
	// Catalog is the initial catalog, see SetCatalog
	Catalog   *catalog.Catalog
	Transport session.Transport
	Clock     clock.Clock

	HeartbeatPeriod time.Duration
	WarmDelay       time.Duration
	ColdDelay       time.Duration
	Placeholder     string
	ViewOrigin      string

	// AttachTimeout is how long a new tab may live without an event stream
	AttachTimeout time.Duration
	MaxTabs       int64
}

// Tab is one open browser tab
type Tab struct {
	ID         string
	CreatedAt  time.Time
	Initial    params.Initial
	Controller *session.Controller
	Page       *page.Page

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	streams int
	timer   clock.Timer
	closed  bool
}

// Context is cancelled when the tab closes
func (t *Tab) Context() context.Context {
	return t.ctx
}

// Manager owns the open tabs
type Manager struct {
	opts    Options
	catalog atomic.Pointer[catalog.Catalog]
	tabs    sync.Map // map[tabID]*Tab
	slots   *semaphore.Weighted
	logger  *logrus.Entry
}

// NewManager creates a tab manager
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.MaxTabs <= 0 {
		opts.MaxTabs = 64
	}
	if opts.AttachTimeout <= 0 {
		opts.AttachTimeout = 30 * time.Second
	}
	m := &Manager{
		opts:   opts,
		slots:  semaphore.NewWeighted(opts.MaxTabs),
		logger: logging.NewLogger("console"),
	}
	m.catalog.Store(opts.Catalog)
	return m
}

// Catalog returns what new tabs can display
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog.Load()
}

// SetCatalog replaces the catalog of tabs opened from now on
func (m *Manager) SetCatalog(c *catalog.Catalog) {
	m.catalog.Store(c)
}

// Open creates a tab from the query string it was opened with and starts
// its initial action in the background. A usage error in the query is
// shown on the tab, which then waits for the operator.
func (m *Manager) Open(query url.Values, acceptLanguage, origin string) (*Tab, error) {
	if !m.slots.TryAcquire(1) {
		return nil, deckerr.New(deckerr.ErrCodeBusy, "too many open tabs")
	}

	cat := m.Catalog()
	initial, usageErr := params.Resolve(query, acceptLanguage, cat)

	id := uuid.New().String()
	now := m.opts.Clock.Now()
	registry := catalog.NewRegistry(cat.BaseLocales())
	pg := page.New(cat, registry, page.Options{
		ID:         id,
		CreatedAt:  now,
		Origin:     origin,
		RemoteFile: initial.RemoteFile,
		Initial:    initial,
	})

	opts := []session.Option{
		session.WithClock(m.opts.Clock),
		session.WithObserver(pg),
		session.WithViewHost(pg),
		session.WithAutoDisplay(initial.AutoDisplay, pg.View),
		session.WithViewOrigin(m.opts.ViewOrigin),
	}
	if m.opts.HeartbeatPeriod > 0 {
		opts = append(opts, session.WithHeartbeatPeriod(m.opts.HeartbeatPeriod))
	}
	if m.opts.ColdDelay > 0 {
		opts = append(opts, session.WithDelays(m.opts.WarmDelay, m.opts.ColdDelay))
	}
	if m.opts.Placeholder != "" {
		opts = append(opts, session.WithPlaceholder(m.opts.Placeholder))
	}
	ctrl, err := session.New(m.opts.Transport, registry, opts...)
	if err != nil {
		m.slots.Release(1)
		return nil, err
	}
	pg.Attach(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	tab := &Tab{
		ID:         id,
		CreatedAt:  now,
		Initial:    initial,
		Controller: ctrl,
		Page:       pg,
		ctx:        ctx,
		cancel:     cancel,
	}
	tab.timer = m.opts.Clock.AfterFunc(m.opts.AttachTimeout, func() { m.reapUnattached(tab) })
	m.tabs.Store(id, tab)

	logger := m.logger.WithFields(logrus.Fields{"tab": id, "action": initial.Action.String()})
	if usageErr != nil {
		logger.WithError(usageErr).Info("tab opened with a usage error")
		pg.Alert(deckerr.MessageOf(usageErr))
		return tab, nil
	}
	logger.Info("tab opened")

	go m.start(tab)
	return tab, nil
}

// start runs the initial action of a tab
func (m *Manager) start(t *Tab) {
	var err error
	switch t.Initial.Action {
	case params.ActionRequestRemoteFile:
		err = t.Controller.Upload(t.ctx, t.Initial.Module, session.RemoteFile(t.Initial.RemoteFile))
	case params.ActionAutoDisplay:
		_, err = t.Controller.ConsumeAutoDisplay(t.ctx, t.Page.View())
	}
	if err != nil {
		m.logger.WithField("tab", t.ID).WithError(err).Debug("initial action failed")
	}
}

// Get returns an open tab
func (m *Manager) Get(id string) (*Tab, error) {
	value, ok := m.tabs.Load(id)
	if !ok {
		return nil, deckerr.NotFound("tab", id)
	}
	return value.(*Tab), nil
}

// List returns the open tabs, oldest first
func (m *Manager) List() []*Tab {
	var tabs []*Tab
	m.tabs.Range(func(_, value interface{}) bool {
		tabs = append(tabs, value.(*Tab))
		return true
	})
	sort.Slice(tabs, func(i, j int) bool {
		return tabs[i].CreatedAt.Before(tabs[j].CreatedAt)
	})
	return tabs
}

// Attach registers an event stream on a tab. The returned release must be
// called when the stream ends; the tab closes with its last stream.
func (m *Manager) Attach(id string) (*Tab, func(), error) {
	t, err := m.Get(id)
	if err != nil {
		return nil, nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, nil, deckerr.NotFound("tab", id)
	}
	t.streams++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			t.mu.Lock()
			t.streams--
			last := t.streams == 0
			t.mu.Unlock()
			if last {
				m.logger.WithField("tab", id).Info("last stream detached")
				m.Close(id)
			}
		})
	}
	return t, release, nil
}

// Close aborts the tab's session and forgets the tab
func (m *Manager) Close(id string) error {
	value, ok := m.tabs.LoadAndDelete(id)
	if !ok {
		return deckerr.NotFound("tab", id)
	}
	t := value.(*Tab)

	t.mu.Lock()
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	t.cancel()
	t.Controller.Close()
	t.Page.Close()
	m.slots.Release(1)

	m.logger.WithField("tab", id).Info("tab closed")
	return nil
}

// Shutdown closes every tab
func (m *Manager) Shutdown() {
	for _, t := range m.List() {
		m.Close(t.ID)
	}
}

func (m *Manager) reapUnattached(t *Tab) {
	t.mu.Lock()
	idle := !t.closed && t.streams == 0
	t.mu.Unlock()

	if idle {
		m.logger.WithField("tab", t.ID).Info("no stream attached in time")
		m.Close(t.ID)
	}
}
