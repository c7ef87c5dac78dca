package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/nikhilbhutani/resumeprocessor/internal/config"
)

// Credential supplies the secret presented to the completion endpoint.
// With forceRefresh set, any cached token is discarded and a new one acquired.
type Credential interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
	// Bearer reports whether the secret is an AAD bearer token rather than an API key.
	Bearer() bool
}

const imdsEndpoint = "http://169.254.169.254/metadata/identity/oauth2/token"

// NewCredential builds the credential selected by cfg.CredentialMode.
func NewCredential(cfg config.LLMConfig) (Credential, error) {
	switch cfg.CredentialMode {
	case config.CredentialAPIKey:
		if cfg.APIKey == "" {
			return nil, errors.New("api key credential requires AZURE_OPENAI_API_KEY")
		}
		return StaticKey(cfg.APIKey), nil
	case config.CredentialClientCredentials:
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
			Scopes:       []string{cfg.Scope},
		}
		return NewClientCredential(cc), nil
	case config.CredentialManagedIdentity, "":
		endpoint := cfg.IdentityEndpoint
		if endpoint == "" {
			endpoint = imdsEndpoint
		}
		return NewManagedIdentityCredential(endpoint, cfg.Scope, cfg.ClientID, nil), nil
	default:
		return nil, fmt.Errorf("unknown credential mode %q", cfg.CredentialMode)
	}
}

// StaticKey is an API key; refreshing returns the same key.
type StaticKey string

func (k StaticKey) Token(context.Context, bool) (string, error) { return string(k), nil }

func (k StaticKey) Bearer() bool { return false }

// tokenCredential caches tokens from an oauth2.TokenSource until they expire.
type tokenCredential struct {
	mu     sync.Mutex
	source func(ctx context.Context) oauth2.TokenSource
	cached oauth2.TokenSource
	token  *oauth2.Token
}

func (c *tokenCredential) Bearer() bool { return true }

func (c *tokenCredential) Token(ctx context.Context, forceRefresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := c.source(ctx)
	if forceRefresh || c.cached == nil {
		c.cached = oauth2.ReuseTokenSource(nil, base)
	} else {
		c.cached = oauth2.ReuseTokenSource(c.token, base)
	}

	tok, err := c.cached.Token()
	if err != nil {
		return "", fmt.Errorf("acquire token: %w", err)
	}
	c.token = tok
	return tok.AccessToken, nil
}

// NewClientCredential acquires tokens with the OAuth2 client credentials grant.
func NewClientCredential(cc *clientcredentials.Config) Credential {
	return &tokenCredential{
		source: func(ctx context.Context) oauth2.TokenSource {
			return tokenSourceFunc(func() (*oauth2.Token, error) { return cc.Token(ctx) })
		},
	}
}

// NewManagedIdentityCredential acquires tokens from the instance metadata
// service. clientID selects a user-assigned identity and may be empty.
func NewManagedIdentityCredential(endpoint, scope, clientID string, httpClient *http.Client) Credential {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	src := &imdsSource{
		endpoint: endpoint,
		resource: strings.TrimSuffix(scope, "/.default"),
		clientID: clientID,
		client:   httpClient,
	}
	return &tokenCredential{
		source: func(ctx context.Context) oauth2.TokenSource {
			return tokenSourceFunc(func() (*oauth2.Token, error) { return src.fetch(ctx) })
		},
	}
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

type imdsSource struct {
	endpoint string
	resource string
	clientID string
	client   *http.Client
}

type imdsToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (s *imdsSource) fetch(ctx context.Context) (*oauth2.Token, error) {
	q := url.Values{}
	q.Set("api-version", "2018-02-01")
	q.Set("resource", s.resource)
	if s.clientID != "" {
		q.Set("client_id", s.clientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Metadata", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read identity response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var it imdsToken
	if err := json.Unmarshal(body, &it); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}
	if it.AccessToken == "" {
		return nil, errors.New("identity endpoint returned empty token")
	}

	tok := &oauth2.Token{AccessToken: it.AccessToken, TokenType: it.TokenType}
	if secs, err := strconv.Atoi(it.ExpiresIn); err == nil && secs > 0 {
		tok.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return tok, nil
}
