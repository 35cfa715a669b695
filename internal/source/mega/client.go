package mega

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/rsakamoto/mediaimport/internal/domain"
)

const apiURL = "https://g.api.mega.co.nz/cs"

// MEGA API error codes this importer cares about. The API signals errors
// as a bare negative integer in place of the response object.
const (
	codeAgain            = -3
	codeRateLimit        = -4
	codeNotFound         = -9
	codePermissionDenied = -11
)

// Client issues requests against the MEGA folder-share API. Every request
// carries an incrementing sequence id and the shared folder handle.
type Client struct {
	httpClient *http.Client

	mu  sync.Mutex
	seq int
}

// NewClient creates a client with a default HTTP client.
func NewClient() *Client {
	return &Client{
		httpClient: http.DefaultClient,
		seq:        rand.Intn(0xFFFFFFF),
	}
}

// NewClientWithHTTP creates a client using the supplied HTTP client.
func NewClientWithHTTP(httpClient *http.Client) *Client {
	c := NewClient()
	c.httpClient = httpClient
	return c
}

func (c *Client) nextSeq() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.seq
	c.seq++
	return seq
}

// request posts a single command to the API. rootFolder is the shared
// folder handle attached as the n query parameter; payload is the command
// object, sent as a one-element array per the protocol.
func (c *Client) request(ctx context.Context, rootFolder string, payload any, out any) error {
	body, err := json.Marshal([]any{payload})
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("id", strconv.Itoa(c.nextSeq()))
	if rootFolder != "" {
		params.Set("n", rootFolder)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"?"+params.Encode(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: http %d", domain.ErrServerError, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d", domain.ErrRequestFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}

	return decodeResponse(raw, out)
}

// decodeResponse unwraps the one-element response array, mapping bare
// integer replies (either at the top level or as the single element) to
// domain errors.
func decodeResponse(raw []byte, out any) error {
	var code int
	if err := json.Unmarshal(raw, &code); err == nil {
		return apiError(code)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return fmt.Errorf("%w: unexpected response: %v", domain.ErrRequestFailed, err)
	}
	if len(elems) == 0 {
		return fmt.Errorf("%w: empty response", domain.ErrRequestFailed)
	}
	if err := json.Unmarshal(elems[0], &code); err == nil {
		return apiError(code)
	}
	if err := json.Unmarshal(elems[0], out); err != nil {
		return fmt.Errorf("%w: unexpected response: %v", domain.ErrRequestFailed, err)
	}
	return nil
}

func apiError(code int) error {
	switch code {
	case codeAgain, codeRateLimit:
		return fmt.Errorf("%w: api code %d", domain.ErrRateLimited, code)
	case codeNotFound:
		return domain.ErrRootNotFound
	case codePermissionDenied:
		return domain.ErrPermissionDenied
	default:
		return fmt.Errorf("%w: api code %d", domain.ErrRequestFailed, code)
	}
}

// fetch downloads raw bytes from a temporary content URL handed out by the
// API.
func (c *Client) fetch(ctx context.Context, contentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", domain.ErrRequestFailed, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	return data, nil
}
