package yahoo

import (
	"context"
	"fmt"
	"strings"

	"alphafinder/internal/fetcher"
)

// DefaultCookieURL hands out the session cookie that crumbs are bound to.
const DefaultCookieURL = "https://fc.yahoo.com"

const crumbPath = "/v1/test/getcrumb"

// crumb returns the cached crumb, running the cookie and crumb handshake on
// first use. Concurrent callers wait for a single handshake.
func (p *Provider) crumb(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentCrumb != "" {
		return p.currentCrumb, nil
	}

	c, err := p.handshake(ctx)
	if err != nil {
		return "", err
	}
	p.currentCrumb = c
	return c, nil
}

// invalidate forgets stale unless another caller already replaced it.
func (p *Provider) invalidate(stale string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentCrumb == stale {
		p.currentCrumb = ""
	}
}

func (p *Provider) handshake(ctx context.Context) (string, error) {
	// The cookie host answers 404 but still sets the cookie in the jar.
	if _, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(p.cookieURL); err != nil {
		return "", fmt.Errorf("yahoo session cookie: %w", fetcher.ClassifyTransportError(err))
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		Get(crumbPath)
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", fetcher.ClassifyTransportError(err))
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("yahoo crumb: %w", fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	c := strings.TrimSpace(resp.String())
	if c == "" || strings.ContainsAny(c, "<{ ") {
		return "", fetcher.NewValidationError("yahoo crumb: unexpected response body")
	}
	return c, nil
}
