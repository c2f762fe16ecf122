package easydb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/archive-tools/easydb-exporter/internal/model"
)

// APIError is a structured rejection from the easydb API, e.g. a
// malformed export definition. Callers treat it as recoverable for
// the current chunk.
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("easydb api error: %s", e.Code)
}

// Client talks to one easydb instance over its v1 HTTP API. Open must
// be called first; after that the session context is fixed for the
// lifetime of the client.
type Client struct {
	http    *http.Client
	session Session
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{http: httpClient}
}

// Session exposes the session context, mainly for logging.
func (c *Client) Session() Session { return c.session }

// Open creates a new server session and captures its token. There is
// no meaningful partial progress without a session, so any transport
// or status failure here is fatal to the run.
func (c *Client) Open(ctx context.Context, server string) error {
	s := NewSession(server)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sessionURL(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("easydb unreachable at %s: %w", s.sessionURL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("open session", resp)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode session response: %w", err)
	}
	if body.Token == "" {
		return fmt.Errorf("session response carries no token")
	}

	s.Token = body.Token
	c.session = s
	slog.Debug("easydb_exporter.client.session_opened", slog.String("server", server))
	return nil
}

// Authenticate binds the session to an account. Rejection is fatal.
func (c *Client) Authenticate(ctx context.Context, login, password string) error {
	params := url.Values{}
	params.Set("token", c.session.Token)
	params.Set("login", login)
	params.Set("password", password)

	resp, err := c.post(ctx, c.session.authenticateURL(), params, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("authenticate", resp)
	}
	slog.Debug("easydb_exporter.client.session_authenticated", slog.String("login", login))
	return nil
}

// Deauthenticate releases the session binding. Best effort; callers
// ignore the error.
func (c *Client) Deauthenticate(ctx context.Context) error {
	resp, err := c.post(ctx, c.session.deauthURL(), c.tokenParams(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("deauthenticate", resp)
	}
	return nil
}

// SearchRequest is the object search payload. Zero-valued optional
// fields are omitted from the wire form.
type SearchRequest struct {
	Search      []SearchClause `json:"search,omitempty"`
	Format      string         `json:"format,omitempty"`
	Type        string         `json:"type,omitempty"`
	Tags        []int64        `json:"tags,omitempty"`
	ObjectTypes []string       `json:"objecttypes,omitempty"`
	Language    string         `json:"language,omitempty"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
	Sort        []SearchSort   `json:"sort,omitempty"`
}

type SearchSort struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"`
}

// SearchObject is the slice of a result object the exporter cares
// about; everything else the server returns is ignored.
type SearchObject struct {
	SystemObjectID int64  `json:"_system_object_id"`
	LastModified   string `json:"_last_modified"`
}

type SearchResponse struct {
	Count   int64          `json:"count"`
	Objects []SearchObject `json:"objects"`
}

// Search runs one object search page. Transient failures are the
// caller's to retry.
func (c *Client) Search(ctx context.Context, sr SearchRequest) (SearchResponse, error) {
	var out SearchResponse

	payload, err := json.Marshal(sr)
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.session.searchURL(), bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-EasyDB-Token", c.session.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, statusError("search", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode search response: %w", err)
	}
	return out, nil
}

// ListExports enumerates the exports belonging to this account.
func (c *Client) ListExports(ctx context.Context) ([]int64, error) {
	resp, err := c.get(ctx, c.session.exportURL(), c.tokenParams())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list exports", resp)
	}

	var body struct {
		Count   int64 `json:"count"`
		Objects []struct {
			Export struct {
				ID int64 `json:"_id"`
			} `json:"export"`
		} `json:"objects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode export list: %w", err)
	}

	ids := make([]int64, 0, len(body.Objects))
	for _, ob := range body.Objects {
		ids = append(ids, ob.Export.ID)
	}
	return ids, nil
}

// PurgeExports deletes every pre-existing export for this account so
// the next create cannot collide with leftovers of a crashed run.
func (c *Client) PurgeExports(ctx context.Context) (int, error) {
	ids, err := c.ListExports(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := c.DeleteExport(ctx, id); err != nil {
			return 0, fmt.Errorf("purge export %d: %w", id, err)
		}
	}
	return len(ids), nil
}

// CreateExport registers a new export resource and returns its ID. A
// body carrying a code field is a structured rejection.
func (c *Client) CreateExport(ctx context.Context, def ExportDefinition) (int64, error) {
	payload, err := json.Marshal(def)
	if err != nil {
		return 0, err
	}
	u := c.session.exportURL() + "?" + c.tokenParams().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("create export: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read create response: %w", err)
	}

	var body struct {
		Code   string `json:"code"`
		Export struct {
			ID int64 `json:"_id"`
		} `json:"export"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, fmt.Errorf("decode create response (status %d): %w", resp.StatusCode, err)
	}
	if body.Code != "" {
		return 0, &APIError{Code: body.Code}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("create export: unexpected status %d", resp.StatusCode)
	}
	return body.Export.ID, nil
}

// StartExport kicks off server-side production of an export.
func (c *Client) StartExport(ctx context.Context, id int64) error {
	resp, err := c.post(ctx, c.session.exportIDURL(id)+"/start", c.tokenParams(), nil)
	if err != nil {
		return fmt.Errorf("start export %d: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(fmt.Sprintf("start export %d", id), resp)
	}
	return nil
}

// ExportState reads the current job state.
func (c *Client) ExportState(ctx context.Context, id int64) (model.ExportState, error) {
	resp, err := c.get(ctx, c.session.exportIDURL(id), c.tokenParams())
	if err != nil {
		return "", fmt.Errorf("poll export %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(fmt.Sprintf("poll export %d", id), resp)
	}
	var body struct {
		State string `json:"_state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode export state: %w", err)
	}
	return model.ExportState(body.State), nil
}

// DownloadExport fetches the produced archive, a ZIP of one XML file
// per object.
func (c *Client) DownloadExport(ctx context.Context, id int64) ([]byte, error) {
	resp, err := c.get(ctx, c.session.exportIDURL(id)+"/zip", c.tokenParams())
	if err != nil {
		return nil, fmt.Errorf("download export %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(fmt.Sprintf("download export %d", id), resp)
	}
	return io.ReadAll(resp.Body)
}

// DeleteExport removes the remote export resource. Callers log, but
// never abort on, a failure here.
func (c *Client) DeleteExport(ctx context.Context, id int64) error {
	u := c.session.exportIDURL(id) + "?" + c.tokenParams().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete export %d: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(fmt.Sprintf("delete export %d", id), resp)
	}
	return nil
}

func (c *Client) tokenParams() url.Values {
	params := url.Values{}
	params.Set("token", c.session.Token)
	return params
}

func (c *Client) get(ctx context.Context, u string, params url.Values) (*http.Response, error) {
	if len(params) > 0 {
		u = u + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) post(ctx context.Context, u string, params url.Values, body io.Reader) (*http.Response, error) {
	if len(params) > 0 {
		u = u + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, bytes.TrimSpace(snippet))
}
