// Package transport speaks the upstream preview server's form-post protocol.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
	"github.com/shehryarbajwa/deckard-mini/internal/logging"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// maxReplySize caps how much of an answer is read
const maxReplySize = 1 << 20

// Client posts uploads and commands to the upstream endpoint.
// Every method returns the decoded reply when the upstream answered with
// status ok or error; any other outcome is returned as a coded error.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *logrus.Entry
}

// NewClient creates a client posting to endpoint
func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream url %q: scheme must be http or https", endpoint)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   u.String(),
		logger:     logging.NewLogger("transport"),
	}, nil
}

// Endpoint returns the upstream URL requests are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Upload sends a translation file, or asks the upstream to fetch one by name
func (c *Client) Upload(ctx context.Context, req models.UploadRequest) (*models.UploadReply, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("po_name", req.Name); err != nil {
		return nil, fmt.Errorf("failed to encode upload: %w", err)
	}
	if !req.Remote() {
		part, err := writer.CreateFormFile("po_file", req.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode upload: %w", err)
		}
		if _, err := part.Write(req.Content); err != nil {
			return nil, fmt.Errorf("failed to encode upload: %w", err)
		}
	}
	if err := writer.WriteField("po_module", req.Module); err != nil {
		return nil, fmt.Errorf("failed to encode upload: %w", err)
	}
	if req.Session != "" {
		if err := writer.WriteField("session", req.Session); err != nil {
			return nil, fmt.Errorf("failed to encode upload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode upload: %w", err)
	}

	status, raw, err := c.post(ctx, "upload", writer.FormDataContentType(), body)
	if err != nil {
		// Browsers report a dropped oversize upload as status 0
		return nil, deckerr.TooLarge(err)
	}
	if status == http.StatusRequestEntityTooLarge {
		return nil, deckerr.TooLarge(fmt.Errorf("upstream answered %d", status))
	}

	var reply models.UploadReply
	if err := decode("upload", status, raw, &reply.Status, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Spawn asks the upstream to start or replace the preview process
func (c *Client) Spawn(ctx context.Context, req models.SpawnRequest) (*models.SpawnReply, error) {
	form := url.Values{}
	form.Set("action", models.ActionSpawn)
	form.Set("module", req.Module)
	form.Set("file", req.File)
	form.Set("lang", req.Lang)
	if req.Session != "" {
		form.Set("session", req.Session)
	}

	status, raw, err := c.postForm(ctx, "spawn", form)
	if err != nil {
		return nil, deckerr.Transport("spawn", err)
	}

	var reply models.SpawnReply
	if err := decode("spawn", status, raw, &reply.Status, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// KeepAlive tells the upstream the session is still wanted
func (c *Client) KeepAlive(ctx context.Context, session string) (*models.KeepAliveReply, error) {
	form := url.Values{}
	form.Set("action", models.ActionKeepAlive)
	form.Set("session", session)

	status, raw, err := c.postForm(ctx, "keep_alive", form)
	if err != nil {
		return nil, deckerr.Transport("keep_alive", err)
	}

	var reply models.KeepAliveReply
	if err := decode("keep_alive", status, raw, &reply.Status, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) postForm(ctx context.Context, action string, form url.Values) (int, []byte, error) {
	return c.post(ctx, action, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (c *Client) post(ctx context.Context, action, contentType string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.WithFields(logrus.Fields{"action": action, "request": requestID[:8]})
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Debug("request failed")
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		logger.WithError(err).Debug("reading reply failed")
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("request done")
	return resp.StatusCode, raw, nil
}

// decode fills reply from raw, requiring its status to be ok or error
func decode(action string, httpStatus int, raw []byte, status *models.ReplyStatus, reply interface{}) error {
	if err := json.Unmarshal(raw, reply); err != nil {
		return deckerr.BadResponse(action, httpStatus, string(raw))
	}
	switch *status {
	case models.StatusOK, models.StatusError:
		return nil
	default:
		return deckerr.BadResponse(action, httpStatus, string(raw))
	}
}
