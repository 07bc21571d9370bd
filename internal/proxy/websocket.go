// Package proxy forwards /<port>/ requests to the upstream preview server so
// the remote view is served from the console's origin, websocket included.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/shehryarbajwa/deckard-mini/internal/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server proxies the remote view of every spawned process
type Server struct {
	upstream *url.URL
	http     *httputil.ReverseProxy
	dialer   *websocket.Dialer
	logger   *logrus.Entry
}

// NewServer creates a proxy to the upstream base URL
func NewServer(upstream string) (*Server, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream URL must be http(s), got %q", upstream)
	}

	s := &Server{
		upstream: u,
		dialer:   websocket.DefaultDialer,
		logger:   logging.NewLogger("proxy"),
	}
	s.http = &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(u)
			r.Out.Host = u.Host
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.WithError(err).WithField("path", r.URL.Path).Warn("Remote view unreachable")
			http.Error(w, "Remote view unreachable", http.StatusBadGateway)
		},
	}
	return s, nil
}

// ServeHTTP forwards a remote view request, upgrading websockets
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.HandleViewConnection(w, r)
		return
	}
	s.http.ServeHTTP(w, r)
}

// HandleViewConnection pumps a websocket between the tab and the process
func (s *Server) HandleViewConnection(w http.ResponseWriter, r *http.Request) {
	target := s.websocketURL(r.URL)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	upstreamConn, resp, err := s.dialer.DialContext(ctx, target, nil)
	if err != nil {
		status := http.StatusBadGateway
		if resp != nil {
			status = resp.StatusCode
		}
		s.logger.WithError(err).WithField("target", target).Warn("Failed to reach remote view")
		http.Error(w, "Remote view unreachable", status)
		return
	}
	defer upstreamConn.Close()

	// Upgrade HTTP connection to WebSocket
	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to upgrade connection")
		return
	}
	defer clientConn.Close()

	logger := s.logger.WithField("path", r.URL.Path)
	logger.Debug("Remote view stream opened")

	// Bidirectional proxy
	errChan := make(chan error, 2)

	go func() {
		errChan <- s.proxyMessages(clientConn, upstreamConn, "tab→view")
	}()

	go func() {
		errChan <- s.proxyMessages(upstreamConn, clientConn, "view→tab")
	}()

	// Wait for either direction to close
	err = <-errChan
	if err != nil && err != io.EOF && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logger.WithError(err).Debug("Remote view stream ended")
	}
}

func (s *Server) websocketURL(in *url.URL) string {
	out := *s.upstream
	if out.Scheme == "https" {
		out.Scheme = "wss"
	} else {
		out.Scheme = "ws"
	}
	out.Path = strings.TrimRight(s.upstream.Path, "/") + in.Path
	out.RawQuery = in.RawQuery
	return out.String()
}

func (s *Server) proxyMessages(src, dst *websocket.Conn, direction string) error {
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithError(err).WithField("direction", direction).Debug("WebSocket error")
			}
			return err
		}

		if err := dst.WriteMessage(messageType, message); err != nil {
			s.logger.WithError(err).WithField("direction", direction).Debug("Failed to write message")
			return err
		}
	}
}
