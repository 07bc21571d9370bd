package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/internal/transport/transporttest"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(endpoint, 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.org", time.Second)
	assert.Error(t, err)
	_, err = NewClient("://", time.Second)
	assert.Error(t, err)
}

func TestUploadLocalFile(t *testing.T) {
	up := transporttest.NewUpstream()
	defer up.Close()
	c := newTestClient(t, up.URL)

	reply, err := c.Upload(context.Background(), models.UploadRequest{
		Name:    "fr.po",
		Content: []byte("msgid \"\"\n"),
		Module:  "shell",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, reply.Status)
	assert.NotEmpty(t, reply.Session)
	assert.Equal(t, map[string][]string{"shell": {"fr.po"}}, reply.CustomFiles)

	last := up.Last()
	assert.Equal(t, "fr.po", last.Fields["po_name"])
	assert.Equal(t, "shell", last.Fields["po_module"])
	assert.Equal(t, "msgid \"\"\n", string(last.File))
	assert.Empty(t, last.Session)
}

func TestUploadRemoteFileAttachesSession(t *testing.T) {
	up := transporttest.NewUpstream()
	defer up.Close()
	c := newTestClient(t, up.URL)

	first, err := c.Upload(context.Background(), models.UploadRequest{Name: "a.po", Module: "shell"})
	require.NoError(t, err)

	second, err := c.Upload(context.Background(), models.UploadRequest{Name: "b.po", Module: "shell", Session: first.Session})
	require.NoError(t, err)
	assert.Equal(t, first.Session, second.Session)
	assert.Equal(t, []string{"a.po", "b.po"}, second.CustomFiles["shell"])
	assert.Nil(t, up.Last().File)
}

func TestUploadErrorReply(t *testing.T) {
	up := transporttest.NewUpstream()
	defer up.Close()
	c := newTestClient(t, up.URL)

	reply, err := c.Upload(context.Background(), models.UploadRequest{Name: "notes.txt", Module: "shell"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, reply.Status)
	assert.Contains(t, reply.Message, "not a PO file")
}

func TestUploadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.Upload(context.Background(), models.UploadRequest{Name: "big.po", Content: []byte("x"), Module: "shell"})
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeTooLarge))
	assert.Equal(t, deckerr.MsgTooLarge, deckerr.MessageOf(err))
}

func TestUploadConnectionFailureIsTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()
	c := newTestClient(t, endpoint)

	_, err := c.Upload(context.Background(), models.UploadRequest{Name: "a.po", Content: []byte("x"), Module: "shell"})
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeTooLarge))
}

func TestSpawn(t *testing.T) {
	up := transporttest.NewUpstream()
	defer up.Close()
	c := newTestClient(t, up.URL)

	reply, err := c.Spawn(context.Background(), models.SpawnRequest{Module: "shell", File: "main.ui", Lang: "fr_FR"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, reply.Status)
	assert.Equal(t, 8081, reply.Port)

	last := up.Last()
	assert.Equal(t, "spawn", last.Action)
	assert.Equal(t, "fr_FR", last.Fields["lang"])
	assert.Equal(t, "main.ui", last.Fields["file"])
	_, hasSession := last.Fields["session"]
	assert.False(t, hasSession)

	again, err := c.Spawn(context.Background(), models.SpawnRequest{Module: "shell", File: "main.ui", Lang: "POSIX", Session: reply.Session})
	require.NoError(t, err)
	assert.Equal(t, reply.Port, again.Port)
	assert.Equal(t, reply.Session, up.Last().Session)
}

func TestKeepAlive(t *testing.T) {
	up := transporttest.NewUpstream()
	defer up.Close()
	c := newTestClient(t, up.URL)

	spawned, err := c.Spawn(context.Background(), models.SpawnRequest{Module: "shell", File: "main.ui", Lang: "POSIX"})
	require.NoError(t, err)

	reply, err := c.KeepAlive(context.Background(), spawned.Session)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, reply.Status)
	assert.Equal(t, 1, reply.UsersCount)

	reply, err = c.KeepAlive(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, reply.Status)
}

func TestBadResponses(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{"html error page", http.StatusInternalServerError, "<h1>Internal Server Error</h1>"},
		{"unknown status", http.StatusOK, `{"status":"maybe"}`},
		{"empty body", http.StatusOK, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			c := newTestClient(t, srv.URL)

			_, err := c.Spawn(context.Background(), models.SpawnRequest{Module: "m", File: "f", Lang: "POSIX"})
			require.Error(t, err)
			assert.True(t, deckerr.Is(err, deckerr.ErrCodeBadResponse))
			assert.True(t, strings.HasPrefix(deckerr.MessageOf(err), "An error occured:\n\n"))
			assert.Contains(t, deckerr.MessageOf(err), tc.body)
		})
	}
}

func TestKeepAliveConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()
	c := newTestClient(t, endpoint)

	_, err := c.KeepAlive(context.Background(), "token")
	assert.True(t, deckerr.Is(err, deckerr.ErrCodeTransport))
}
