package optimizer

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtBearerGrantType  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime   = time.Hour
	tokenRefreshSkew    = 60 * time.Second
	defaultTokenTimeout = 10 * time.Second
)

// TokenSource yields a short-lived bearer credential for the optimizer.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Intended for local optimizers and tests.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", &Error{Message: "static optimizer token is empty"}
	}
	return token, nil
}

type ServiceAccountConfig struct {
	TokenURL      string
	ClientEmail   string
	PrivateKeyPEM string
	Scope         string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ServiceAccountTokenSource exchanges a signed JWT assertion for an access
// token and caches it until shortly before expiry.
type ServiceAccountTokenSource struct {
	cfg    ServiceAccountConfig
	key    *rsa.PrivateKey
	client *resty.Client
	now    func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewServiceAccountTokenSource(cfg ServiceAccountConfig, client *resty.Client) (*ServiceAccountTokenSource, error) {
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientEmail = strings.TrimSpace(cfg.ClientEmail)
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("token url is required")
	}
	if cfg.ClientEmail == "" {
		return nil, fmt.Errorf("client email is required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(strings.ReplaceAll(cfg.PrivateKeyPEM, `\n`, "\n")))
	if err != nil {
		return nil, fmt.Errorf("invalid service account private key: %w", err)
	}

	if client == nil {
		client = resty.New()
		client.SetTimeout(defaultTokenTimeout)
	}
	client.SetRetryCount(0)

	return &ServiceAccountTokenSource{
		cfg:    cfg,
		key:    key,
		client: client,
		now:    time.Now,
	}, nil
}

func (s *ServiceAccountTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expiry.Add(-tokenRefreshSkew)) {
		return s.token, nil
	}

	assertion, err := s.signAssertion(now)
	if err != nil {
		return "", &Error{Message: "failed to sign token assertion", Cause: err}
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": jwtBearerGrantType,
			"assertion":  assertion,
		}).
		Post(s.cfg.TokenURL)
	if err != nil {
		return "", &Error{
			Message:   "token request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode != http.StatusOK {
		return "", &Error{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("token endpoint returned status %d", statusCode),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(response.Body(), &tr); err != nil {
		return "", &Error{StatusCode: statusCode, Message: "failed to decode token response", Cause: err}
	}
	if strings.TrimSpace(tr.AccessToken) == "" {
		return "", &Error{StatusCode: statusCode, Message: "token response has no access_token"}
	}

	s.token = tr.AccessToken
	s.expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	return s.token, nil
}

func (s *ServiceAccountTokenSource) signAssertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss": s.cfg.ClientEmail,
		"sub": s.cfg.ClientEmail,
		"aud": s.cfg.TokenURL,
		"iat": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
	}
	if scope := strings.TrimSpace(s.cfg.Scope); scope != "" {
		claims["scope"] = scope
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
}
