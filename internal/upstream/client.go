// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/partysync/internal/config"
	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/metrics"
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/relay"
	"github.com/tomtom215/partysync/internal/store"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 4 << 20

// Relay is the direct-control channel used before falling back to the API.
type Relay interface {
	Connected(token string) bool
	Send(token string, kind relay.MessageType, uri string, positionMs int64) bool
}

// Client talks to the playback API on behalf of stored subjects.
//
// All requests share one rate limiter and one circuit breaker. A 401 on a
// credentialed request triggers exactly one token refresh, persisted
// through the CredentialStore, followed by exactly one retry.
type Client struct {
	httpClient   *http.Client
	apiBase      string
	accountsURL  string
	clientID     string
	clientSecret string

	limiter *rate.Limiter
	breaker *breaker
	creds   store.CredentialStore
	relay   Relay
	now     func() time.Time
}

// New creates a Client. relay may be nil when direct control is disabled.
func New(cfg *config.UpstreamConfig, creds store.CredentialStore, r Relay) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		apiBase:      strings.TrimRight(cfg.APIBaseURL, "/"),
		accountsURL:  cfg.AccountsURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		breaker:      newBreaker("playback-api", cfg),
		creds:        creds,
		relay:        r,
		now:          time.Now,
	}
}

// BreakerState returns the circuit breaker state ("closed", "half-open", "open").
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

type request struct {
	op     string
	method string
	url    string
	query  url.Values
	body   interface{}
	form   url.Values
	accept []int

	// bearer is used when the request carries no credential.
	bearer string
}

type rawResponse struct {
	status int
	body   []byte
}

func (r *request) accepts(status int) bool {
	for _, s := range r.accept {
		if s == status {
			return true
		}
	}
	return false
}

// execute runs req for cred. When the refresh path fires, cred.AccessToken
// is updated in place so later calls in the same tick use the new token.
func (c *Client) execute(ctx context.Context, req *request, cred *models.Credential) (*rawResponse, error) {
	token := req.bearer
	if cred != nil {
		token = cred.AccessToken
	}

	resp, err := c.do(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if req.accepts(resp.status) {
		return resp, nil
	}

	if resp.status == http.StatusUnauthorized && cred != nil {
		refreshed, rerr := c.RefreshToken(ctx, cred)
		if rerr != nil {
			logging.Warn().Err(rerr).Str("subject", cred.SubjectID).Str("op", req.op).Msg("Token refresh failed")
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, rerr)
		}
		cred.AccessToken = refreshed.AccessToken
		cred.RefreshToken = refreshed.RefreshToken
		cred.Tier = refreshed.Tier

		resp, err = c.do(ctx, req, cred.AccessToken)
		if err != nil {
			return nil, err
		}
		if req.accepts(resp.status) {
			return resp, nil
		}
		if resp.status == http.StatusUnauthorized {
			logging.Warn().Str("subject", cred.SubjectID).Str("method", req.method).Str("url", req.url).
				Msg("Upstream still unauthorized after token refresh")
			return nil, ErrUnauthorized
		}
	}

	return nil, c.statusError(req, resp)
}

// do performs one paced, breaker-guarded round trip.
func (c *Client) do(ctx context.Context, req *request, token string) (*rawResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrTransport, err)
	}

	start := time.Now()
	resp, err := c.breaker.execute(func() (*rawResponse, error) {
		r, err := c.roundTrip(ctx, req, token)
		if err != nil {
			return nil, err
		}
		if r.status >= http.StatusInternalServerError {
			return r, errServerStatus
		}
		return r, nil
	})

	status := 0
	if resp != nil {
		status = resp.status
	}
	metrics.RecordUpstreamRequest(req.op, status, time.Since(start))

	switch {
	case errors.Is(err, errServerStatus):
		return resp, nil
	case err != nil:
		return nil, err
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, req *request, token string) (*rawResponse, error) {
	var body io.Reader = http.NoBody
	contentType := ""
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if len(req.query) > 0 {
		httpReq.URL.RawQuery = req.query.Encode()
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logging.Warn().Err(err).Str("method", req.method).Str("url", req.url).Msg("Upstream request failed")
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.method, req.url, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	return &rawResponse{status: httpResp.StatusCode, body: data}, nil
}

func (c *Client) statusError(req *request, resp *rawResponse) *StatusError {
	se := &StatusError{Method: req.method, URL: req.url, Status: resp.status}
	var we wireError
	if json.Unmarshal(resp.body, &we) == nil {
		se.Message = we.Error.Message
	}
	logging.Warn().
		Str("method", se.Method).
		Str("url", se.URL).
		Int("status", se.Status).
		Str("message", se.Message).
		Msg("Upstream unexpected response")
	return se
}

func (c *Client) apiURL(path string) string {
	return c.apiBase + path
}

// User is the subset of the upstream profile the service uses.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"`
	Country     string `json:"country,omitempty"`
}

// Tier maps the product name onto a subscription tier.
func (u *User) Tier() models.Tier {
	if u != nil && u.Product == "premium" {
		return models.TierPremium
	}
	return models.TierFree
}

// CurrentUser fetches the profile for a raw access token. No refresh is
// attempted since there is no credential to refresh.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := c.execute(ctx, &request{
		op:     "current_user",
		method: http.MethodGet,
		url:    c.apiURL("/me"),
		accept: []int{http.StatusOK},
		bearer: accessToken,
	}, nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(resp.body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// RefreshToken exchanges cred's refresh token for a new access token,
// re-reads the account tier and persists the result on top of the stored
// credential.
func (c *Client) RefreshToken(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	tok, user, err := c.exchange(ctx, cred)
	if err != nil {
		return nil, err
	}

	// The stored record may have changed since the caller read it, for
	// example a relay pairing. Only the token and profile fields are
	// overwritten.
	current, err := c.creds.Get(ctx, cred.SubjectID)
	if err != nil {
		metrics.RecordTokenRefresh(false)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: credential removed during refresh", ErrUnauthorized)
		}
		return nil, fmt.Errorf("reload credential: %w", err)
	}
	return c.saveRefreshed(ctx, current, tok, user)
}

// RedeemRefreshToken is RefreshToken for a newly ingested credential: cred
// replaces whatever is stored for its subject.
func (c *Client) RedeemRefreshToken(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	tok, user, err := c.exchange(ctx, cred)
	if err != nil {
		return nil, err
	}
	return c.saveRefreshed(ctx, cred, tok, user)
}

func (c *Client) exchange(ctx context.Context, cred *models.Credential) (*wireToken, *User, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	resp, err := c.do(ctx, &request{
		op:     "refresh_token",
		method: http.MethodPost,
		url:    c.accountsURL,
		form:   form,
	}, "")
	if err != nil {
		metrics.RecordTokenRefresh(false)
		return nil, nil, err
	}
	if resp.status != http.StatusOK {
		metrics.RecordTokenRefresh(false)
		se := c.statusError(&request{method: http.MethodPost, url: c.accountsURL}, resp)
		if resp.status == http.StatusBadRequest || resp.status == http.StatusUnauthorized {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, se)
		}
		return nil, nil, se
	}

	var tok wireToken
	if err := json.Unmarshal(resp.body, &tok); err != nil {
		metrics.RecordTokenRefresh(false)
		return nil, nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		metrics.RecordTokenRefresh(false)
		return nil, nil, errors.New("token response has no access_token")
	}

	user, uerr := c.CurrentUser(ctx, tok.AccessToken)
	if uerr != nil {
		logging.Debug().Err(uerr).Str("subject", cred.SubjectID).Msg("Keeping previous tier, profile lookup failed")
	}
	return &tok, user, nil
}

func (c *Client) saveRefreshed(ctx context.Context, base *models.Credential, tok *wireToken, user *User) (*models.Credential, error) {
	updated := *base
	updated.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	if user != nil {
		updated.Tier = user.Tier()
		updated.ProviderUserID = user.ID
		if updated.DisplayName == "" {
			updated.DisplayName = user.DisplayName
		}
	}

	saved, err := c.creds.Save(ctx, &updated)
	if err != nil {
		metrics.RecordTokenRefresh(false)
		return nil, fmt.Errorf("persist refreshed credential: %w", err)
	}

	metrics.RecordTokenRefresh(true)
	logging.Debug().Str("subject", saved.SubjectID).Str("tier", string(saved.Tier)).Msg("Access token refreshed")
	return saved, nil
}
