// Package captcha checks challenge tokens for the anonymous account routes
// (registration and password-reset requests) before they reach the case API.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"casedesk/internal/config"
)

var (
	ErrRequired    = errors.New("captcha required")
	ErrUnavailable = errors.New("captcha unavailable")
)

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Off accepts every request.
type Off struct{}

func (Off) Verify(context.Context, string, string) error { return nil }

// Siteverify talks to a Turnstile or hCaptcha compatible endpoint.
type Siteverify struct {
	endpoint string
	secret   string
	client   *http.Client
}

func New(cfg config.Config) Verifier {
	if !cfg.CaptchaEnabled {
		return Off{}
	}
	return &Siteverify{
		endpoint: strings.TrimSpace(cfg.CaptchaVerifyURL),
		secret:   strings.TrimSpace(cfg.CaptchaSecret),
		client:   &http.Client{Timeout: 8 * time.Second},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *Siteverify) Verify(ctx context.Context, token, remoteIP string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is missing", ErrRequired)
	}
	form := url.Values{"secret": {v.secret}, "response": {token}}
	if ip := strings.TrimSpace(remoteIP); ip != "" {
		form.Set("remoteip", ip)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: siteverify HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: siteverify HTTP %d", ErrRequired, resp.StatusCode)
	}
	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !out.Success {
		if len(out.ErrorCodes) > 0 {
			return fmt.Errorf("%w: rejected: %s", ErrRequired, strings.Join(out.ErrorCodes, ","))
		}
		return fmt.Errorf("%w: rejected", ErrRequired)
	}
	return nil
}
