// Package iam exchanges service-account signed assertions for short-lived IAM tokens.
package iam

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenURL = "https://iam.api.cloud.yandex.net/iam/v1/tokens"

	// AssertionTTL is the lifetime written into the exp claim of each assertion.
	AssertionTTL = 360 * time.Second
)

// ExchangeError is returned when an IAM token cannot be obtained.
type ExchangeError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ExchangeError) Error() string {
	msg := "iam " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// Provider issues a fresh assertion and exchanges it on every Token call.
// Tokens are not reused between calls.
type Provider struct {
	serviceAccountID string
	keyID            string
	key              *rsa.PrivateKey
	tokenURL         string
	client           *http.Client
	logger           *slog.Logger
	now              func() time.Time
}

// NewProvider parses the PEM private key of a service-account authorized key.
// Leading non-PEM text, such as the banner line in downloaded key files, is ignored.
func NewProvider(serviceAccountID, keyID, privateKeyPEM, tokenURL string, logger *slog.Logger) (*Provider, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &Provider{
		serviceAccountID: serviceAccountID,
		keyID:            keyID,
		key:              key,
		tokenURL:         tokenURL,
		client:           &http.Client{Timeout: 30 * time.Second},
		logger:           logger,
		now:              time.Now,
	}, nil
}

// Assertion returns a PS256-signed JWT for the token endpoint.
func (p *Provider) Assertion() (string, error) {
	now := p.now().Unix()
	claims := jwt.MapClaims{
		"iss": p.serviceAccountID,
		"aud": p.tokenURL,
		"iat": now,
		"exp": now + int64(AssertionTTL/time.Second),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodPS256, claims)
	tok.Header["kid"] = p.keyID

	signed, err := tok.SignedString(p.key)
	if err != nil {
		return "", &ExchangeError{Op: "sign assertion", Err: err}
	}
	return signed, nil
}

// Token exchanges a new assertion for an IAM token.
func (p *Provider) Token(ctx context.Context) (string, error) {
	assertion, err := p.Assertion()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]string{"jwt": assertion})
	if err != nil {
		return "", &ExchangeError{Op: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", &ExchangeError{Op: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ExchangeError{Op: "token request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ExchangeError{Op: "read response", StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ExchangeError{Op: "token request", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out struct {
		IAMToken  string `json:"iamToken"`
		ExpiresAt string `json:"expiresAt"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &ExchangeError{Op: "decode response", StatusCode: resp.StatusCode, Body: string(respBody), Err: err}
	}
	if out.IAMToken == "" {
		return "", &ExchangeError{Op: "decode response", StatusCode: resp.StatusCode, Body: string(respBody), Err: fmt.Errorf("iamToken missing")}
	}

	p.logger.Debug("iam token issued", "expires_at", out.ExpiresAt)
	return out.IAMToken, nil
}
