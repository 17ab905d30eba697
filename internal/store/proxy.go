package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Proxy talks to a deployed github-proxy endpoint (GET returns the array,
// PUT replaces it), the way the browser client of the board does.
type Proxy struct {
	url    string
	client *http.Client
}

func NewProxy(url string, timeout time.Duration) *Proxy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Proxy{url: url, client: &http.Client{Timeout: timeout}}
}

func (p *Proxy) Load(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := p.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("proxy get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, statusError("proxy", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("proxy read: %w", err)
	}
	return Snapshot{Data: data, Version: Digest(data)}, nil
}

func (p *Proxy) Save(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy put: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError("proxy", resp)
	}
	return Digest(data), nil
}

func (p *Proxy) Version(ctx context.Context) (string, error) {
	snap, err := p.Load(ctx)
	if err != nil {
		return "", err
	}
	return snap.Version, nil
}
