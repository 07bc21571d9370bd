package page

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/deckard-mini/internal/catalog"
	"github.com/shehryarbajwa/deckard-mini/internal/clock"
	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/internal/params"
	"github.com/shehryarbajwa/deckard-mini/internal/session"
	"github.com/shehryarbajwa/deckard-mini/internal/transport"
	"github.com/shehryarbajwa/deckard-mini/internal/transport/transporttest"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(`
modules:
  - name: shell
    screens: [main.ui, prefs.glade]
  - name: settings
    screens: [display.ui]
locales: [POSIX, fr_FR, de_DE]
`))
	require.NoError(t, err)
	return c
}

type fixture struct {
	page     *Page
	ctrl     *session.Controller
	clock    *clock.Fake
	upstream *transporttest.Upstream
}

// newFixture wires a page to a controller talking to a fake upstream
func newFixture(t *testing.T, initial params.Initial) *fixture {
	t.Helper()
	cat := testCatalog(t)
	registry := catalog.NewRegistry(cat.BaseLocales())
	up := transporttest.NewUpstream()
	t.Cleanup(up.Close)

	client, err := transport.NewClient(up.URL, 5*time.Second)
	require.NoError(t, err)

	fake := clock.NewFake(time.Unix(0, 0))
	p := New(cat, registry, Options{ID: "tab", Origin: "http://console", RemoteFile: initial.RemoteFile, Initial: initial})
	ctrl, err := session.New(client, registry,
		session.WithClock(fake),
		session.WithObserver(p),
		session.WithViewHost(p),
		session.WithAutoDisplay(initial.AutoDisplay, p.View),
	)
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	p.Attach(ctrl)

	return &fixture{page: p, ctrl: ctrl, clock: fake, upstream: up}
}

func defaultInitial() params.Initial {
	return params.Initial{Module: "shell", Screen: "main.ui", AutoDisplay: params.NewOneShot(false)}
}

func TestInitialSnapshot(t *testing.T) {
	initial := defaultInitial()
	initial.Locale = 1
	f := newFixture(t, initial)

	snap := f.page.Snapshot()
	assert.Equal(t, "tab", snap.ID)
	assert.Equal(t, string(session.StateDisconnected), snap.State)
	assert.Equal(t, []string{"shell", "settings"}, snap.Modules)
	assert.Equal(t, []string{"main.ui", "prefs.glade"}, snap.Screens)
	assert.Len(t, snap.Locales, 3)
	assert.Equal(t, 1, snap.SelectedLocale)
	assert.Equal(t, LabelDisconnected, snap.UsersLabel)
	assert.True(t, snap.ControlsEnabled)
	assert.True(t, snap.UploadEnabled)
	assert.False(t, snap.Spinner)
	assert.Equal(t, "http://console/?module=shell&ui=main.ui&locale=fr_FR&display=1", snap.ShareURL)
}

func TestUploadSelectsNewEntryAndModuleSwitchRebuilds(t *testing.T) {
	f := newFixture(t, defaultInitial())
	ctx := context.Background()

	require.NoError(t, f.ctrl.Upload(ctx, "shell", session.LocalFile{Name: "shell-fr.po", Content: []byte("msgid \"\"")}))
	snap := f.page.Snapshot()
	require.Len(t, snap.Locales, 4)
	assert.Equal(t, 3, snap.SelectedLocale)
	assert.Equal(t, "shell-fr.po", snap.Locales[3].Code)
	assert.True(t, snap.Session)
	assert.Equal(t, "http://console/?module=shell&ui=main.ui", snap.ShareURL)

	require.NoError(t, f.page.Select(models.SelectRequest{Module: "settings"}))
	snap = f.page.Snapshot()
	assert.Len(t, snap.Locales, 3)
	assert.Equal(t, "display.ui", snap.Screen)
	assert.Equal(t, 0, snap.SelectedLocale)

	require.NoError(t, f.page.Select(models.SelectRequest{Module: "shell"}))
	snap = f.page.Snapshot()
	assert.Len(t, snap.Locales, 4)
	assert.Equal(t, "main.ui", snap.Screen)
}

func TestSpawnDrivesViewAndSpinner(t *testing.T) {
	f := newFixture(t, defaultInitial())
	require.NoError(t, f.ctrl.Spawn(context.Background(), f.page.View()))

	snap := f.page.Snapshot()
	assert.Equal(t, session.DefaultPlaceholder, snap.ViewSrc)
	assert.True(t, snap.Spinner)
	assert.Equal(t, string(session.StateActive), snap.State)

	f.clock.Advance(session.DefaultColdDelay)
	snap = f.page.Snapshot()
	assert.Equal(t, "/8081/", snap.ViewSrc)
	assert.False(t, snap.Spinner)

	f.clock.Advance(session.DefaultHeartbeatPeriod)
	assert.Equal(t, "Users online: 1", f.page.Snapshot().UsersLabel)
}

func TestAbortResetsIndicators(t *testing.T) {
	f := newFixture(t, defaultInitial())
	require.NoError(t, f.ctrl.Upload(context.Background(), "shell", session.RemoteFile("shell-fr.po")))
	f.clock.Advance(session.DefaultHeartbeatPeriod)
	require.Equal(t, "Users online: 1", f.page.Snapshot().UsersLabel)

	f.upstream.SetExpire(true)
	f.clock.Advance(session.DefaultHeartbeatPeriod)

	snap := f.page.Snapshot()
	assert.Equal(t, LabelDisconnected, snap.UsersLabel)
	assert.False(t, snap.Session)
	assert.Len(t, snap.Locales, 3)
	assert.Equal(t, 0, snap.SelectedLocale)
	assert.Empty(t, snap.Alerts)
}

func TestRejectedFileDisablesUpload(t *testing.T) {
	f := newFixture(t, defaultInitial())
	err := f.ctrl.Upload(context.Background(), "shell", session.LocalFile{Name: "translation.txt"})
	require.Error(t, err)

	snap := f.page.Snapshot()
	assert.False(t, snap.UploadEnabled)
	assert.True(t, snap.ControlsEnabled)
	assert.Equal(t, []string{deckerr.MsgNotPOFile}, snap.Alerts)

	require.NoError(t, f.ctrl.Upload(context.Background(), "shell", session.LocalFile{Name: "translation.po"}))
	assert.True(t, f.page.Snapshot().UploadEnabled)
}

func TestRemoteFileAutoDisplay(t *testing.T) {
	initial := defaultInitial()
	initial.Action = params.ActionRequestRemoteFile
	initial.RemoteFile = "shell-fr.po"
	initial.AutoDisplay = params.NewOneShot(true)
	f := newFixture(t, initial)

	require.NoError(t, f.ctrl.Upload(context.Background(), "shell", session.RemoteFile(initial.RemoteFile)))

	spawn := f.upstream.Last()
	assert.Equal(t, models.ActionSpawn, spawn.Action)
	assert.Equal(t, "shell-fr.po", spawn.Fields["lang"])

	snap := f.page.Snapshot()
	assert.Equal(t, "http://console/?module=shell&ui=main.ui&file=shell-fr.po&display=1", snap.ShareURL)
}

func TestSelectValidation(t *testing.T) {
	f := newFixture(t, defaultInitial())
	bad := 7

	assert.True(t, deckerr.Is(f.page.Select(models.SelectRequest{Module: "nope"}), deckerr.ErrCodeNotFound))
	assert.True(t, deckerr.Is(f.page.Select(models.SelectRequest{Screen: "display.ui"}), deckerr.ErrCodeNotFound))
	assert.True(t, deckerr.Is(f.page.Select(models.SelectRequest{Locale: &bad}), deckerr.ErrCodeValidation))

	two := 2
	require.NoError(t, f.page.Select(models.SelectRequest{Screen: "prefs.glade", Locale: &two}))
	view := f.page.View()
	assert.Equal(t, "prefs.glade", view.Screen)
	assert.Equal(t, "de_DE", view.Locale.Code)
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, defaultInitial())
	ch, cancel := f.page.Subscribe()

	first := <-ch
	assert.Equal(t, "main.ui", first.Screen)

	require.NoError(t, f.page.Select(models.SelectRequest{Screen: "prefs.glade"}))
	require.NoError(t, f.page.Select(models.SelectRequest{Module: "settings"}))
	latest := <-ch
	assert.Equal(t, "settings", latest.Module)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	ch2, _ := f.page.Subscribe()
	f.page.Close()
	<-ch2
	_, open = <-ch2
	assert.False(t, open)
}

func TestSelectLockedDuringUpload(t *testing.T) {
	f := newFixture(t, defaultInitial())

	f.page.ControlsChanged(session.OpUpload, false)
	err := f.page.Select(models.SelectRequest{Module: "settings"})
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeBusy))
	assert.Equal(t, "shell", f.page.View().Module)

	f.page.ControlsChanged(session.OpUpload, true)
	require.NoError(t, f.page.Select(models.SelectRequest{Module: "settings"}))
	assert.Equal(t, "settings", f.page.View().Module)
}

func TestSelectByLocaleValue(t *testing.T) {
	f := newFixture(t, defaultInitial())
	require.NoError(t, f.ctrl.Upload(context.Background(), "shell", session.LocalFile{Name: "fr.po"}))

	require.NoError(t, f.page.Select(models.SelectRequest{LocaleValue: "de_DE (custom)"}))
	assert.Equal(t, models.LocaleEntry{Kind: models.BaseLocale, Code: "de_DE", Label: catalog.BaseEntry("de_DE").Label}, f.page.View().Locale)

	require.NoError(t, f.page.Select(models.SelectRequest{LocaleValue: "fr.po"}))
	assert.Equal(t, catalog.CustomEntry("fr.po"), f.page.View().Locale)

	err := f.page.Select(models.SelectRequest{LocaleValue: "it.po"})
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeNotFound))
}
