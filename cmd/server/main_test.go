package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/deckard-mini/internal/catalog"
	"github.com/shehryarbajwa/deckard-mini/internal/config"
)

func TestWatchView(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
modules:
  - name: shell
    screens: [main.ui, prefs.glade]
  - name: settings
    screens: [display.ui]
locales: [POSIX, fr_FR]
`))
	require.NoError(t, err)

	view, err := watchView(cat, watchOptions{locale: "POSIX"})
	require.NoError(t, err)
	assert.Equal(t, "shell", view.Module)
	assert.Equal(t, "main.ui", view.Screen)
	assert.Equal(t, "POSIX", view.Locale.Code)

	view, err = watchView(cat, watchOptions{module: "shell", screen: "prefs.glade", locale: "fr_FR"})
	require.NoError(t, err)
	assert.Equal(t, "prefs.glade", view.Screen)
	assert.Equal(t, "fr_FR", view.Locale.Code)

	for _, opts := range []watchOptions{
		{module: "nope", locale: "POSIX"},
		{module: "settings", screen: "main.ui", locale: "POSIX"},
		{locale: "xx_YY"},
	} {
		_, err := watchView(cat, opts)
		assert.Error(t, err, "%+v", opts)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	root := newRootCmd()
	serveCmd := newServeCmd()
	root.AddCommand(serveCmd)

	require.NoError(t, root.PersistentFlags().Parse([]string{"--heartbeat-period", "5s"}))
	require.NoError(t, serveCmd.Flags().Parse([]string{"--listen", ":9999", "--max-tabs", "3"}))

	cfg, err := config.Load("", serveCmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, 3, cfg.MaxTabs)
	assert.Equal(t, config.Default().UpstreamURL, cfg.UpstreamURL)

	cfg, err = config.Load("", root.PersistentFlags())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatPeriod)
}
