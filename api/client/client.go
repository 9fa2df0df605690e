// Package client is a Go client for the ciphervote HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/api"
	"github.com/vocdoni/ciphervote/crypto/ethereum"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/types"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	errCodeNot200 = "API error"

	// DefaultRetries this enables Request() to handle the situation where the server connection fails
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 10 * time.Second
)

// APIError is returned by the typed methods when the server answers with a
// non 200 status. Code is the API error code.
type APIError struct {
	HTTPStatus int
	Code       int    `json:"code"`
	Message    string `json:"error"`
	// Category is the engine error category: validation, state, trust or
	// notfound. Empty for request errors.
	Category string `json:"category"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d (code %d: %s)", errCodeNot200, e.HTTPStatus, e.Code, e.Message)
}

// HTTPclient is the ciphervote API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New connects to the API host and checks it is alive.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	c := &HTTPclient{
		c:       &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	data, status, err := c.Request(HTTPGET, nil, nil, api.PingEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return c, nil
}

// SetRetries configures the number of retries for the HTTP client.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = n
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// Request performs a `method` type raw request to the endpoint specified in urlPath parameter.
// Method is either GET or POST. If POST, a JSON struct should be attached.  Returns the response,
// the status code and an error.
//
// Supports query parameters via `params` slice. If the slice is not empty, it should contain pairs of strings;
// the first element of each pair is the key, and the second element is the value.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		body, err = json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	if len(params) > 0 {
		values := url.Values{}
		for i := 0; i < len(params)-1; i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	log.Debugw("http client request",
		"type", method,
		"url", u.String(),
		"body", func() string {
			if len(body) > 512 {
				return string(body[:512]) + "..."
			}
			return string(body)
		}(),
	)

	// only connection failures are retried, any HTTP answer is final
	var resp *http.Response
	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequest(method, u.String(), bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
		}
		resp, err = c.c.Do(req)
		if err != nil {
			log.Warnw("http request failed", "error", err.Error(), "attempt", attempt, "retries", c.retries)
			return err
		}
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), uint64(max(c.retries-1, 0)))
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, 0, fmt.Errorf("http request ultimately failed after retries: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// call performs a request and decodes the JSON answer into out, if not nil.
func (c *HTTPclient) call(method string, jsonBody any, params []string, out any, urlPath ...string) error {
	data, status, err := c.Request(method, jsonBody, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &APIError{HTTPStatus: status}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func sessionPath(id uint64) string {
	return path.Join(api.SessionsPath, strconv.FormatUint(id, 10))
}

// Verifier returns the trusted verifier information.
func (c *HTTPclient) Verifier() (*api.VerifierInfo, error) {
	info := &api.VerifierInfo{}
	return info, c.call(HTTPGET, nil, nil, info, api.VerifierPath)
}

// CreatorNonce returns the nonce the next session request of creator must
// carry.
func (c *HTTPclient) CreatorNonce(creator common.Address) (uint64, error) {
	resp := &api.CreatorNonce{}
	if err := c.call(HTTPGET, nil, nil, resp, api.CreatorsPath, creator.Hex(), api.NoncePath); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

// CreateSession signs the request with signer and creates the session. The
// request nonce is set to the current nonce of the signer.
func (c *HTTPclient) CreateSession(signer *ethereum.SignKeys, req *types.SessionRequest) (uint64, error) {
	nonce, err := c.CreatorNonce(signer.Address())
	if err != nil {
		return 0, fmt.Errorf("cannot get creator nonce: %w", err)
	}
	signed, err := SignSessionRequest(signer, req, nonce)
	if err != nil {
		return 0, err
	}
	resp := &api.NewSessionResponse{}
	if err := c.call(HTTPPOST, signed, nil, resp, api.SessionsPath); err != nil {
		return 0, err
	}
	return resp.SessionID, nil
}

// SignSessionRequest returns a copy of req with the given nonce, signed by
// signer.
func SignSessionRequest(signer *ethereum.SignKeys, req *types.SessionRequest, nonce uint64) (*api.NewSession, error) {
	signed := &api.NewSession{SessionRequest: *req}
	signed.Nonce = nonce
	msg, err := signed.SignatureMessage()
	if err != nil {
		return nil, err
	}
	if signed.Signature, err = signer.SignEthereum(msg); err != nil {
		return nil, fmt.Errorf("cannot sign session request: %w", err)
	}
	return signed, nil
}

// Session returns the session info.
func (c *HTTPclient) Session(id uint64) (*types.SessionInfo, error) {
	info := &types.SessionInfo{}
	return info, c.call(HTTPGET, nil, nil, info, sessionPath(id))
}

// Sessions returns a page of sessions.
func (c *HTTPclient) Sessions(offset, limit int) ([]*types.SessionInfo, error) {
	list := &api.SessionList{}
	params := []string{"offset", strconv.Itoa(offset), "limit", strconv.Itoa(limit)}
	if err := c.call(HTTPGET, nil, params, list, api.SessionsPath); err != nil {
		return nil, err
	}
	return list.Sessions, nil
}

// CastBallot signs and casts an encrypted ballot on behalf of signer.
func (c *HTTPclient) CastBallot(signer *ethereum.SignKeys, id uint64, optionIndex int, ciphertext, proof []byte) error {
	msg, err := types.BallotSignatureMessage(id, optionIndex, ciphertext, proof)
	if err != nil {
		return err
	}
	signature, err := signer.SignEthereum(msg)
	if err != nil {
		return fmt.Errorf("cannot sign ballot: %w", err)
	}
	ballot := &api.Ballot{
		OptionIndex: optionIndex,
		Ciphertext:  ciphertext,
		Proof:       proof,
		Signature:   signature,
	}
	return c.call(HTTPPOST, ballot, nil, nil, sessionPath(id), api.BallotsPath)
}

// Finalize asks the service to publish the results of an ended session.
func (c *HTTPclient) Finalize(id uint64) (*types.Results, error) {
	res := &types.Results{}
	return res, c.call(HTTPPOST, nil, nil, res, sessionPath(id), api.FinalizePath)
}

// Results returns the published results of a session.
func (c *HTTPclient) Results(id uint64) (*types.Results, error) {
	res := &types.Results{}
	return res, c.call(HTTPGET, nil, nil, res, sessionPath(id), api.ResultsPath)
}

// Events returns up to limit events starting at sequence number from.
func (c *HTTPclient) Events(from uint64, limit int) (*api.EventList, error) {
	list := &api.EventList{}
	params := []string{"from", strconv.FormatUint(from, 10), "limit", strconv.Itoa(limit)}
	return list, c.call(HTTPGET, nil, params, list, api.EventsPath)
}

// StreamEvents follows the event log from sequence number from on, calling fn
// for every event in order. It returns when fn returns false, or with an
// error when ctx is done or the stream is closed.
func (c *HTTPclient) StreamEvents(ctx context.Context, from uint64, fn func(*types.Event) bool) error {
	u := *c.host
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = path.Join(u.Path, api.EventsPath, api.StreamPath)
	u.RawQuery = url.Values{"from": []string{strconv.FormatUint(from, 10)}}.Encode()
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("cannot open event stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	for {
		event := &types.Event{}
		if err := wsjson.Read(ctx, conn, event); err != nil {
			return fmt.Errorf("event stream: %w", err)
		}
		if !fn(event) {
			return nil
		}
	}
}
