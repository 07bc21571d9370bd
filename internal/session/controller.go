package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/deckard-mini/internal/catalog"
	"github.com/shehryarbajwa/deckard-mini/internal/clock"
	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/internal/logging"
	"github.com/shehryarbajwa/deckard-mini/internal/params"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// Defaults of the timing policy
const (
	DefaultHeartbeatPeriod = 2000 * time.Millisecond
	DefaultWarmDelay       = 700 * time.Millisecond
	DefaultColdDelay       = 1700 * time.Millisecond
	DefaultPlaceholder     = "/resources/waiting.html"
)

// Transport carries requests to the upstream preview server
type Transport interface {
	Upload(ctx context.Context, req models.UploadRequest) (*models.UploadReply, error)
	Spawn(ctx context.Context, req models.SpawnRequest) (*models.SpawnReply, error)
	KeepAlive(ctx context.Context, session string) (*models.KeepAliveReply, error)
}

// Controller owns one upstream session: its token, the heartbeat keeping
// it alive and the preview process started in it. Every failure ends in
// Abort, which returns the controller to StateDisconnected.
type Controller struct {
	transport Transport
	registry  *catalog.Registry
	clock     clock.Clock
	observer  Observer
	view      ViewHost
	logger    *logrus.Entry

	period      time.Duration
	warmDelay   time.Duration
	coldDelay   time.Duration
	placeholder string
	origin      string

	autoDisplay *params.OneShot
	selection   func() models.DesiredView

	// ops is held by the operator action in progress; wire by the request
	// on the wire, keep-alives included.
	ops  *semaphore.Weighted
	wire *semaphore.Weighted

	baseCtx context.Context
	cancel  context.CancelFunc

	mu             sync.Mutex
	state          State
	session        string
	processRunning bool
	generation     uint64
	heartbeat      *Heartbeat
	viewTimer      clock.Timer
	viewSeq        uint64
	pending        []notification

	// delivery serializes observer calls; delivered is the generation of
	// the last Aborted handed out
	delivery  sync.Mutex
	delivered uint64
}

// notification is one queued observer call. Calls tied to a generation
// older than the last delivered Aborted are dropped; controls and file
// checks always go through.
type notification struct {
	gen    uint64
	always bool
	aborts bool
	f      func()
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces the wall clock
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithObserver registers the notification sink
func WithObserver(o Observer) Option {
	return func(ctrl *Controller) { ctrl.observer = o }
}

// WithViewHost registers the surface the remote UI is shown in
func WithViewHost(v ViewHost) Option {
	return func(ctrl *Controller) { ctrl.view = v }
}

// WithHeartbeatPeriod sets the keep-alive period
func WithHeartbeatPeriod(d time.Duration) Option {
	return func(ctrl *Controller) { ctrl.period = d }
}

// WithDelays sets how long to wait before showing a replaced process
// (warm) and a first launch (cold)
func WithDelays(warm, cold time.Duration) Option {
	return func(ctrl *Controller) {
		ctrl.warmDelay = warm
		ctrl.coldDelay = cold
	}
}

// WithPlaceholder sets the page shown while a process starts
func WithPlaceholder(target string) Option {
	return func(ctrl *Controller) { ctrl.placeholder = target }
}

// WithViewOrigin sets the origin remote view paths are appended to
func WithViewOrigin(origin string) Option {
	return func(ctrl *Controller) { ctrl.origin = strings.TrimRight(origin, "/") }
}

// WithAutoDisplay makes the first successful upload spawn the view
// returned by selection, if flag is still armed at that point
func WithAutoDisplay(flag *params.OneShot, selection func() models.DesiredView) Option {
	return func(ctrl *Controller) {
		ctrl.autoDisplay = flag
		ctrl.selection = selection
	}
}

// New creates a disconnected controller
func New(transport Transport, registry *catalog.Registry, opts ...Option) (*Controller, error) {
	c := &Controller{
		transport:   transport,
		registry:    registry,
		clock:       clock.Real{},
		observer:    NopObserver{},
		view:        nopViewHost{},
		logger:      logging.NewLogger("session"),
		period:      DefaultHeartbeatPeriod,
		warmDelay:   DefaultWarmDelay,
		coldDelay:   DefaultColdDelay,
		placeholder: DefaultPlaceholder,
		ops:         semaphore.NewWeighted(1),
		wire:        semaphore.NewWeighted(1),
		state:       StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.period <= 0 {
		return nil, fmt.Errorf("heartbeat period must be positive, got %s", c.period)
	}
	if c.coldDelay <= c.warmDelay {
		return nil, fmt.Errorf("cold delay %s must exceed warm delay %s", c.coldDelay, c.warmDelay)
	}
	if c.autoDisplay != nil && c.selection == nil {
		return nil, fmt.Errorf("auto display needs a selection")
	}

	c.baseCtx, c.cancel = context.WithCancel(context.Background())
	c.heartbeat = NewHeartbeat(c.clock, c.period, c.keepAlive)
	return c, nil
}

// State returns the lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the current token, empty when disconnected
func (c *Controller) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// ProcessRunning reports whether a process was shown in this session
func (c *Controller) ProcessRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processRunning
}

// HeartbeatRunning reports whether keep-alives are scheduled
func (c *Controller) HeartbeatRunning() bool {
	return c.heartbeat.Running()
}

// Locales returns the locale list of module: base entries followed by the
// translations uploaded in this session for it
func (c *Controller) Locales(module string) []models.LocaleEntry {
	return c.registry.Locales(module)
}

// BaseLocaleCount is the length of the locale list without uploads
func (c *Controller) BaseLocaleCount() int {
	return c.registry.BaseLen()
}

// Upload sends a translation for module. A local file must be named *.po;
// otherwise nothing is sent and a VALIDATION error is returned. With a live
// session the translation is added to it.
func (c *Controller) Upload(ctx context.Context, module string, src Source) error {
	if local, ok := src.(LocalFile); ok {
		if err := CheckPOName(local.Name); err != nil {
			c.notify(func() { c.observer.FileChecked(local.Name, false) })
			c.notify(func() { c.observer.Alert(deckerr.MessageOf(err)) })
			return err
		}
		c.notify(func() { c.observer.FileChecked(local.Name, true) })
	}

	if !c.ops.TryAcquire(1) {
		return deckerr.Busy(string(OpUpload))
	}
	defer c.ops.Release(1)

	autoSpawn, err := c.upload(ctx, module, src)
	if err != nil || !autoSpawn {
		return err
	}
	return c.spawn(ctx, c.selection())
}

// Spawn starts, or replaces, the preview process showing view
func (c *Controller) Spawn(ctx context.Context, view models.DesiredView) error {
	if !c.ops.TryAcquire(1) {
		return deckerr.Busy(string(OpSpawn))
	}
	defer c.ops.Release(1)

	return c.spawn(ctx, view)
}

// ConsumeAutoDisplay spawns view if the auto-display flag is still armed.
// It reports whether a spawn was attempted.
func (c *Controller) ConsumeAutoDisplay(ctx context.Context, view models.DesiredView) (bool, error) {
	if !c.autoDisplay.Consume() {
		return false, nil
	}
	return true, c.Spawn(ctx, view)
}

// Abort drops the session and everything attached to it. It is safe to
// call in any state, any number of times.
func (c *Controller) Abort() {
	c.mu.Lock()
	c.abortLocked()
	c.unlockAndFlush()
}

// Close aborts and releases the controller's resources
func (c *Controller) Close() {
	c.Abort()
	c.cancel()
}

func (c *Controller) upload(ctx context.Context, module string, src Source) (bool, error) {
	if err := c.wire.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer c.wire.Release(1)

	c.mu.Lock()
	c.heartbeat.Stop()
	c.state = StateEstablishing
	session, gen := c.session, c.generation
	c.emitControls(OpUpload, false)
	c.unlockAndFlush()

	req := models.UploadRequest{
		Name:    src.name(),
		Content: src.content(),
		Module:  module,
		Session: session,
	}
	logger := c.logger.WithFields(logrus.Fields{"module": module, "name": req.Name, "remote": req.Remote()})
	logger.Debug("uploading translation")

	reply, err := c.transport.Upload(ctx, req)

	c.mu.Lock()
	defer c.unlockAndFlush()
	c.emitControls(OpUpload, true)

	if gen != c.generation {
		logger.Debug("session aborted while uploading, dropping reply")
		return false, nil
	}

	if err != nil {
		logger.WithError(err).Warn("upload failed")
		c.abortLocked()
		msg := deckerr.MessageOf(err)
		c.emit(func() { c.observer.Alert(msg) })
		return false, err
	}
	if reply.Status == models.StatusError {
		logger.WithField("message", reply.Message).Info("upload refused")
		c.abortLocked()
		c.emit(func() { c.observer.Alert(reply.Message) })
		return false, deckerr.Application(string(OpUpload), reply.Message)
	}

	c.session = reply.Session
	c.state = StateActive
	c.registry.Replace(reply.CustomFiles)
	entries := c.registry.Locales(module)
	selected := -1
	if len(c.registry.Custom(module)) > 0 {
		selected = len(entries) - 1
	}
	c.heartbeat.Start()

	token := reply.Session
	c.emit(func() { c.observer.SessionEstablished(token) })
	c.emit(func() { c.observer.LocalesChanged(module, entries, selected) })
	logger.WithField("custom", len(reply.CustomFiles)).Info("translation stored")

	return c.autoDisplay.Consume(), nil
}

func (c *Controller) spawn(ctx context.Context, view models.DesiredView) error {
	if err := c.wire.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.wire.Release(1)

	c.mu.Lock()
	c.heartbeat.Stop()
	c.state = StateEstablishing
	session, gen := c.session, c.generation
	c.emitControls(OpSpawn, false)
	c.unlockAndFlush()

	req := models.SpawnRequest{
		Module:  view.Module,
		File:    view.Screen,
		Lang:    view.Locale.Code,
		Session: session,
	}
	logger := c.logger.WithFields(logrus.Fields{"module": req.Module, "file": req.File, "lang": req.Lang})
	logger.Debug("spawning preview")

	reply, err := c.transport.Spawn(ctx, req)

	c.mu.Lock()
	defer c.unlockAndFlush()
	c.emitControls(OpSpawn, true)

	if gen != c.generation {
		logger.Debug("session aborted while spawning, dropping reply")
		return nil
	}

	if err != nil {
		logger.WithError(err).Warn("spawn failed")
		c.abortLocked()
		msg := deckerr.MessageOf(err)
		c.emit(func() { c.observer.Alert(msg) })
		return err
	}
	if reply.Status == models.StatusError {
		logger.WithField("message", reply.Message).Info("spawn refused")
		c.abortLocked()
		c.emit(func() { c.observer.Alert(reply.Message) })
		return deckerr.Application(string(OpSpawn), reply.Message)
	}

	c.session = reply.Session
	c.state = StateActive
	c.heartbeat.Start()

	delay := c.coldDelay
	if c.processRunning {
		delay = c.warmDelay
	}
	target := c.endpoint(reply.Port)
	c.stopViewTimerLocked()
	c.viewSeq++
	seq := c.viewSeq
	c.viewTimer = c.clock.AfterFunc(delay, func() { c.showView(gen, seq, target) })

	token, placeholder := reply.Session, c.placeholder
	c.emit(func() { c.observer.SessionEstablished(token) })
	c.emit(func() { c.view.Navigate(placeholder) })
	logger.WithFields(logrus.Fields{"port": reply.Port, "delay": delay}).Info("preview spawned")
	return nil
}

// showView points the view host at the process once it had time to start
func (c *Controller) showView(gen, seq uint64, target string) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if gen != c.generation || seq != c.viewSeq {
		return
	}
	c.viewTimer = nil
	c.processRunning = true
	c.emit(func() { c.view.Navigate(target) })
	c.emit(func() { c.observer.ViewReady(target) })
}

// keepAlive is the heartbeat tick. A tick finding another request on the
// wire is skipped.
func (c *Controller) keepAlive() {
	if !c.wire.TryAcquire(1) {
		c.logger.Debug("request in flight, skipping keep-alive")
		return
	}
	defer c.wire.Release(1)

	c.mu.Lock()
	session, gen := c.session, c.generation
	c.mu.Unlock()
	if session == "" {
		return
	}

	reply, err := c.transport.KeepAlive(c.baseCtx, session)

	c.mu.Lock()
	defer c.unlockAndFlush()

	if gen != c.generation || session != c.session {
		return
	}

	if err != nil {
		// the upstream decides when a session expires
		c.logger.WithError(err).Warn("keep-alive failed")
		msg := deckerr.MessageOf(err)
		c.emit(func() { c.observer.Alert(msg) })
		return
	}
	if reply.Status == models.StatusError {
		c.logger.WithField("message", reply.Message).Info("session expired")
		c.heartbeat.Stop()
		c.abortLocked()
		return
	}

	count := reply.UsersCount
	c.emit(func() { c.observer.UsersCountChanged(count) })
}

func (c *Controller) abortLocked() {
	c.generation++
	if c.session != "" {
		c.logger.Info("session aborted")
	}
	c.session = ""
	c.processRunning = false
	c.registry.Clear()
	c.heartbeat.Stop()
	c.stopViewTimerLocked()
	c.state = StateDisconnected
	c.pending = append(c.pending, notification{gen: c.generation, aborts: true, f: c.observer.Aborted})
}

func (c *Controller) stopViewTimerLocked() {
	if c.viewTimer != nil {
		c.viewTimer.Stop()
		c.viewTimer = nil
	}
}

func (c *Controller) endpoint(port int) string {
	return c.origin + "/" + strconv.Itoa(port) + "/"
}

// emit queues a notification of the current generation; c.mu must be held
func (c *Controller) emit(f func()) {
	c.pending = append(c.pending, notification{gen: c.generation, f: f})
}

func (c *Controller) emitControls(op Operation, enabled bool) {
	c.pending = append(c.pending, notification{always: true, f: func() { c.observer.ControlsChanged(op, enabled) }})
}

// notify runs a notification outside of any transition
func (c *Controller) notify(f func()) {
	c.mu.Lock()
	c.pending = append(c.pending, notification{always: true, f: f})
	c.unlockAndFlush()
}

// unlockAndFlush releases c.mu, then delivers queued notifications. Batches
// from different goroutines never interleave, and what a concurrent Abort
// already superseded is not delivered.
func (c *Controller) unlockAndFlush() {
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	c.delivery.Lock()
	defer c.delivery.Unlock()
	for _, n := range pending {
		if !n.always && n.gen < c.delivered {
			continue
		}
		if n.aborts && n.gen > c.delivered {
			c.delivered = n.gen
		}
		n.f()
	}
}
