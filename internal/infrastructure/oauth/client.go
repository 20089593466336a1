package oauth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/pkg/observability"
)

// Provider endpoint paths.
const (
	authorizePath = "/IdPOAuth2/authorize/idp1"
	tokenPath     = "/IdPOAuth2/token/idp1"
	userInfoPath  = "/IdPOAuth2/userinfo/idp1"
)

const (
	requestTimeout = 30 * time.Second

	// connectedMargin is the lookahead applied by IsConnected: a token about
	// to expire within the margin is treated as expired and refreshed, so it
	// cannot lapse between the check and a subsequent call.
	connectedMargin = 5 * time.Minute

	defaultExpiresIn = 3600
	defaultTokenType = "Bearer"
)

// DefaultScopes are requested when the caller passes none.
var DefaultScopes = []string{"openid", "profile", "accounts", "transactions"}

// Environment holds the provider endpoints for one deployment environment.
type Environment struct {
	AuthBaseURL string
	APIBaseURL  string
}

// Environments known to the client. Sandbox is the pre-production platform.
var Environments = map[string]Environment{
	"sandbox": {
		AuthBaseURL: "https://usignon.pre.ca-cib.com",
		APIBaseURL:  "https://api.pre.ca-cib.com",
	},
	"production": {
		AuthBaseURL: "https://usignon.ca-cib.com",
		APIBaseURL:  "https://api.ca-cib.com",
	},
}

// Config holds the OAuth2 client credentials and environment selection.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Environment selects the endpoint set: "sandbox" or "production".
	// Unknown values fall back to sandbox.
	Environment string
	// AuthBaseURL and APIBaseURL override the environment endpoints when
	// set. Used for nonstandard deployments and tests.
	AuthBaseURL string
	APIBaseURL  string
}

// Client implements the OAuth2 Authorization Code flow with PKCE against the
// banking provider and signs outgoing API calls. Per-user token state moves
// through Disconnected -> Pending -> Connected -> Expired; recovery from
// Expired only happens through a fresh BeginAuthorization.
type Client struct {
	cfg      Config
	authBase string
	apiBase  string
	attempts AttemptStore
	tokens   TokenStore
	http     *http.Client
	logger   *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

var _ port.BankAuthorizer = (*Client)(nil)

// NewClient creates an OAuth2 client over the given stores. metrics may be
// nil in tests.
func NewClient(cfg Config, attempts AttemptStore, tokens TokenStore, logger *slog.Logger, metrics *observability.Metrics) *Client {
	env, ok := Environments[cfg.Environment]
	if !ok {
		env = Environments["sandbox"]
	}
	if cfg.AuthBaseURL != "" {
		env.AuthBaseURL = cfg.AuthBaseURL
	}
	if cfg.APIBaseURL != "" {
		env.APIBaseURL = cfg.APIBaseURL
	}

	return &Client{
		cfg:      cfg,
		authBase: env.AuthBaseURL,
		apiBase:  env.APIBaseURL,
		attempts: attempts,
		tokens:   tokens,
		http:     &http.Client{Timeout: requestTimeout},
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// BeginAuthorization generates a PKCE pair, records the attempt, and returns
// the authorization URL the user must visit.
func (c *Client) BeginAuthorization(userID string, scopes []string) (port.AuthorizationRequest, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	state, err := randomToken(32)
	if err != nil {
		return port.AuthorizationRequest{}, fmt.Errorf("generate state: %w", err)
	}
	verifier, err := randomToken(64)
	if err != nil {
		return port.AuthorizationRequest{}, fmt.Errorf("generate code verifier: %w", err)
	}

	if err := c.attempts.Save(model.AuthorizationAttempt{
		State:        state,
		UserID:       userID,
		CodeVerifier: verifier,
		Scopes:       scopes,
		CreatedAt:    c.now(),
	}); err != nil {
		return port.AuthorizationRequest{}, fmt.Errorf("save authorization attempt: %w", err)
	}

	// The provider is sensitive to parameter order; build the query by hand
	// instead of url.Values, which sorts keys.
	query := encodeOrdered([][2]string{
		{"response_type", "code"},
		{"client_id", c.cfg.ClientID},
		{"redirect_uri", c.cfg.RedirectURI},
		{"scope", strings.Join(scopes, " ")},
		{"state", state},
		{"code_challenge", challengeS256(verifier)},
		{"code_challenge_method", "S256"},
	})

	if c.metrics != nil {
		c.metrics.AuthorizationsStarted.Inc()
	}
	c.logger.Info("authorization URL issued", "user_id", userID, "scopes", strings.Join(scopes, " "))

	return port.AuthorizationRequest{
		URL:   c.authBase + authorizePath + "?" + query,
		State: state,
	}, nil
}

// tokenResponse is the provider's token endpoint response body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// CompleteAuthorization consumes the PKCE attempt for the given state and
// exchanges the authorization code for tokens. The attempt is consumed even
// when the exchange fails: a failed code is not retryable and the user must
// restart the flow.
func (c *Client) CompleteAuthorization(ctx context.Context, code, state string) (port.AuthorizationGrant, error) {
	attempt, err := c.attempts.Consume(state)
	if err != nil {
		return port.AuthorizationGrant{}, err
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.RedirectURI},
		"code_verifier": {attempt.CodeVerifier},
	}

	tok, err := c.postToken(ctx, form)
	if err != nil {
		if c.metrics != nil {
			c.metrics.TokenExchanges.WithLabelValues("failure").Inc()
		}
		c.logger.Error("token exchange failed", "user_id", attempt.UserID, "error", err)
		return port.AuthorizationGrant{}, err
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = defaultTokenType
	}

	c.tokens.Put(model.TokenRecord{
		UserID:       attempt.UserID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tokenType,
		ExpiresAt:    c.now().Add(time.Duration(expiresIn) * time.Second),
		Scopes:       attempt.Scopes,
	})

	if c.metrics != nil {
		c.metrics.TokenExchanges.WithLabelValues("success").Inc()
	}
	c.logger.Info("tokens obtained", "user_id", attempt.UserID)

	return port.AuthorizationGrant{
		UserID:    attempt.UserID,
		ExpiresIn: time.Duration(expiresIn) * time.Second,
		Scopes:    attempt.Scopes,
	}, nil
}

// Refresh performs a refresh grant for the user. Returns false without error
// when no refresh token is on record or when the provider rejects the grant;
// the existing (expired) record is left untouched so the caller can surface a
// re-authentication prompt.
func (c *Client) Refresh(ctx context.Context, userID string) bool {
	refreshed := false
	c.tokens.WithUserLock(userID, func() {
		refreshed = c.refreshLocked(ctx, userID)
	})
	return refreshed
}

// refreshLocked is the refresh body. Callers must hold the user lock.
func (c *Client) refreshLocked(ctx context.Context, userID string) bool {
	record, ok := c.tokens.Get(userID)
	if !ok || record.RefreshToken == "" {
		return false
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {record.RefreshToken},
		"client_id":     {c.cfg.ClientID},
	}

	tok, err := c.postToken(ctx, form)
	if err != nil {
		if c.metrics != nil {
			c.metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		}
		c.logger.Error("token refresh failed", "user_id", userID, "error", err)
		return false
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	record.AccessToken = tok.AccessToken
	record.ExpiresAt = c.now().Add(time.Duration(expiresIn) * time.Second)
	// Rotation is provider-dependent: absence of a new refresh token means
	// keep the existing one.
	if tok.RefreshToken != "" {
		record.RefreshToken = tok.RefreshToken
	}
	c.tokens.Put(record)

	if c.metrics != nil {
		c.metrics.TokenRefreshes.WithLabelValues("success").Inc()
	}
	c.logger.Info("token refreshed", "user_id", userID)
	return true
}

// postToken POSTs to the token endpoint with HTTP Basic client credentials.
func (c *Client) postToken(ctx context.Context, form url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+basicCredentials(c.cfg.ClientID, c.cfg.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("%w: reading token response: %v", model.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenResponse{}, fmt.Errorf("%w: status %d", model.ErrTokenExchangeFailed, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return tokenResponse{}, fmt.Errorf("%w: parsing token response: %v", model.ErrTokenExchangeFailed, err)
	}
	return tok, nil
}

// AuthorizedRequest performs an authenticated call against the provider API.
// An expired token is refreshed before the call; a 401 response triggers
// exactly one refresh-and-retry, after which the status is surfaced as an
// APIError rather than looping.
func (c *Client) AuthorizedRequest(ctx context.Context, userID, method, endpoint string, params url.Values, body any) ([]byte, error) {
	return c.authorizedCall(ctx, userID, method, c.apiBase+endpoint, params, body)
}

// UserInfo fetches the authenticated user's profile from the authorization
// server.
func (c *Client) UserInfo(ctx context.Context, userID string) (map[string]any, error) {
	raw, err := c.authorizedCall(ctx, userID, http.MethodGet, c.authBase+userInfoPath, nil, nil)
	if err != nil {
		return nil, err
	}
	var info map[string]any
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("parse userinfo response: %w", err)
	}
	return info, nil
}

func (c *Client) authorizedCall(ctx context.Context, userID, method, fullURL string, params url.Values, body any) ([]byte, error) {
	accessToken, err := c.resolveToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	status, raw, err := c.doAPIRequest(ctx, method, fullURL, params, body, accessToken)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		// One refresh, one retry. A second 401 surfaces as-is.
		refreshed := false
		c.tokens.WithUserLock(userID, func() {
			refreshed = c.refreshLocked(ctx, userID)
		})
		if refreshed {
			record, _ := c.tokens.Get(userID)
			status, raw, err = c.doAPIRequest(ctx, method, fullURL, params, body, record.AccessToken)
			if err != nil {
				return nil, err
			}
		}
	}

	if status < 200 || status >= 300 {
		c.countRequest(fullURL, status)
		return nil, &model.APIError{StatusCode: status}
	}
	c.countRequest(fullURL, status)
	return raw, nil
}

// resolveToken returns a currently valid access token for the user,
// refreshing under the user lock when the stored token has expired.
func (c *Client) resolveToken(ctx context.Context, userID string) (string, error) {
	var accessToken string
	var resolveErr error

	c.tokens.WithUserLock(userID, func() {
		record, ok := c.tokens.Get(userID)
		if !ok {
			resolveErr = model.ErrNotAuthenticated
			return
		}
		if !record.ValidFor(c.now(), 0) {
			if !c.refreshLocked(ctx, userID) {
				resolveErr = model.ErrNotAuthenticated
				return
			}
			record, _ = c.tokens.Get(userID)
		}
		accessToken = record.AccessToken
	})

	return accessToken, resolveErr
}

func (c *Client) doAPIRequest(ctx context.Context, method, fullURL string, params url.Values, body any, accessToken string) (int, []byte, error) {
	if len(params) > 0 {
		fullURL = fullURL + "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response: %v", model.ErrNetwork, err)
	}

	return resp.StatusCode, raw, nil
}

// IsConnected reports whether the user holds a token valid for at least five
// more minutes, proactively refreshing when it is not.
func (c *Client) IsConnected(ctx context.Context, userID string) bool {
	connected := false
	c.tokens.WithUserLock(userID, func() {
		record, ok := c.tokens.Get(userID)
		if !ok {
			return
		}
		if record.ValidFor(c.now(), connectedMargin) {
			connected = true
			return
		}
		connected = c.refreshLocked(ctx, userID)
	})
	return connected
}

// Disconnect removes the user's stored tokens. Idempotent.
func (c *Client) Disconnect(userID string) bool {
	removed := c.tokens.Remove(userID)
	if removed {
		c.logger.Info("user disconnected from provider", "user_id", userID)
	}
	return removed
}

// TokenState returns the user's token record for status reporting.
func (c *Client) TokenState(userID string) (model.TokenRecord, bool) {
	return c.tokens.Get(userID)
}

func (c *Client) countRequest(fullURL string, status int) {
	if c.metrics == nil {
		return
	}
	endpoint := fullURL
	if u, err := url.Parse(fullURL); err == nil {
		endpoint = u.Path
	}
	c.metrics.ProviderRequests.WithLabelValues(endpoint, fmt.Sprintf("%dxx", status/100)).Inc()
}

// randomToken returns n bytes from crypto/rand, base64url-encoded without
// padding.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// challengeS256 derives the PKCE code challenge from a verifier.
func challengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// basicCredentials builds the HTTP Basic token for client authentication.
func basicCredentials(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}

// encodeOrdered url-encodes key/value pairs preserving their order.
func encodeOrdered(pairs [][2]string) string {
	var b strings.Builder
	for i, kv := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
	}
	return b.String()
}
