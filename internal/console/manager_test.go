package console

import (
	"net/url"
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

func newTestManager(t *testing.T, maxTabs int64) (*Manager, *clock.Fake, *transporttest.Upstream) {
	t.Helper()
	cat, err := catalog.Parse([]byte(`
modules:
  - name: shell
    screens: [main.ui]
  - name: settings
    screens: [display.ui]
locales: [POSIX, fr_FR]
`))
	require.NoError(t, err)

	up := transporttest.NewUpstream()
	t.Cleanup(up.Close)
	client, err := transport.NewClient(up.URL, 5*time.Second)
	require.NoError(t, err)

	fake := clock.NewFake(time.Unix(0, 0))
	m := NewManager(Options{
		Catalog:       cat,
		Transport:     client,
		Clock:         fake,
		AttachTimeout: 10 * time.Second,
		MaxTabs:       maxTabs,
	})
	t.Cleanup(m.Shutdown)
	return m, fake, up
}

func TestOpenAndClose(t *testing.T) {
	m, _, _ := newTestManager(t, 4)

	tab, err := m.Open(url.Values{"module": {"settings"}}, "fr-FR", "http://console")
	require.NoError(t, err)
	assert.Equal(t, params.ActionNone, tab.Initial.Action)

	got, err := m.Get(tab.ID)
	require.NoError(t, err)
	assert.Same(t, tab, got)

	snap := tab.Page.Snapshot()
	assert.Equal(t, "settings", snap.Module)
	assert.Equal(t, 1, snap.SelectedLocale)
	assert.Len(t, m.List(), 1)

	require.NoError(t, m.Close(tab.ID))
	_, err = m.Get(tab.ID)
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeNotFound))
	assert.Error(t, tab.Context().Err())
	assert.True(t, deckerr.Is(m.Close(tab.ID), deckerr.ErrCodeNotFound))
}

func TestOpenLimitsTabs(t *testing.T) {
	m, _, _ := newTestManager(t, 1)

	first, err := m.Open(url.Values{}, "", "")
	require.NoError(t, err)
	_, err = m.Open(url.Values{}, "", "")
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeBusy))

	require.NoError(t, m.Close(first.ID))
	_, err = m.Open(url.Values{}, "", "")
	assert.NoError(t, err)
}

func TestOpenWithUsageError(t *testing.T) {
	m, _, up := newTestManager(t, 4)

	tab, err := m.Open(url.Values{"file": {"fr.po"}}, "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{deckerr.MsgInvalidModule}, tab.Page.Snapshot().Alerts)
	assert.Empty(t, up.Requests())
}

func TestOpenRequestsRemoteFile(t *testing.T) {
	m, _, up := newTestManager(t, 4)

	tab, err := m.Open(url.Values{"module": {"shell"}, "file": {"shell-fr.po"}, "display": {"1"}}, "", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(up.Requests()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	requests := up.Requests()
	assert.Equal(t, "upload", requests[0].Action)
	assert.Equal(t, "shell-fr.po", requests[0].Fields["po_name"])
	assert.Equal(t, models.ActionSpawn, requests[1].Action)
	assert.Equal(t, "shell-fr.po", requests[1].Fields["lang"])

	require.Eventually(t, func() bool {
		return tab.Controller.State() == session.StateActive
	}, 5*time.Second, 10*time.Millisecond)
}

func TestOpenAutoDisplay(t *testing.T) {
	m, _, up := newTestManager(t, 4)

	tab, err := m.Open(url.Values{"display": {"1"}, "locale": {"fr_FR"}}, "", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(up.Requests()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	spawn := up.Last()
	assert.Equal(t, models.ActionSpawn, spawn.Action)
	assert.Equal(t, "fr_FR", spawn.Fields["lang"])
	assert.False(t, tab.Initial.AutoDisplay.Armed())
}

func TestUnattachedTabIsReaped(t *testing.T) {
	m, fake, _ := newTestManager(t, 4)

	idle, err := m.Open(url.Values{}, "", "")
	require.NoError(t, err)
	watched, err := m.Open(url.Values{}, "", "")
	require.NoError(t, err)

	_, release, err := m.Attach(watched.ID)
	require.NoError(t, err)

	fake.Advance(10 * time.Second)
	_, err = m.Get(idle.ID)
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeNotFound))
	_, err = m.Get(watched.ID)
	assert.NoError(t, err)

	release()
	release()
	_, err = m.Get(watched.ID)
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeNotFound))
}

func TestTabClosesWithLastStream(t *testing.T) {
	m, _, _ := newTestManager(t, 4)
	tab, err := m.Open(url.Values{}, "", "")
	require.NoError(t, err)

	_, first, err := m.Attach(tab.ID)
	require.NoError(t, err)
	_, second, err := m.Attach(tab.ID)
	require.NoError(t, err)

	first()
	_, err = m.Get(tab.ID)
	assert.NoError(t, err)

	second()
	_, err = m.Get(tab.ID)
	assert.Error(t, err)

	_, _, err = m.Attach(tab.ID)
	assert.Error(t, err)
}

func TestSetCatalogAffectsNewTabs(t *testing.T) {
	m, _, _ := newTestManager(t, 4)
	before, err := m.Open(url.Values{}, "", "")
	require.NoError(t, err)

	next, err := catalog.Parse([]byte("modules:\n  - name: panel\n    screens: [panel.ui]\nlocales: [POSIX]\n"))
	require.NoError(t, err)
	m.SetCatalog(next)

	after, err := m.Open(url.Values{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "panel", after.Page.Snapshot().Module)
	assert.Equal(t, "shell", before.Page.Snapshot().Module)
}
