package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGitHubAPI = "https://api.github.com"

type GitHubConfig struct {
	Token   string
	Repo    string // owner/name
	Path    string
	Branch  string
	BaseURL string
	Timeout time.Duration
	// Location of the commit message timestamp.
	Location *time.Location
}

// GitHub stores the document as a file in a repository through the contents API.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
	now    func() time.Time
}

func NewGitHub(cfg GitHubConfig) *GitHub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGitHubAPI
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Path == "" {
		cfg.Path = "data.json"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &GitHub{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

func (g *GitHub) contentsURL(withRef bool) string {
	u := strings.TrimRight(g.cfg.BaseURL, "/") + "/repos/" + g.cfg.Repo + "/contents/" + strings.TrimLeft(g.cfg.Path, "/")
	if withRef {
		u += "?ref=" + url.QueryEscape(g.cfg.Branch)
	}
	return u
}

func (g *GitHub) newRequest(ctx context.Context, method, u string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "token "+g.cfg.Token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (g *GitHub) contents(ctx context.Context) (contentsResponse, error) {
	req, err := g.newRequest(ctx, http.MethodGet, g.contentsURL(true), nil)
	if err != nil {
		return contentsResponse{}, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return contentsResponse{}, fmt.Errorf("github get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return contentsResponse{}, statusError("github", resp)
	}
	var out contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return contentsResponse{}, fmt.Errorf("github decode: %w", err)
	}
	return out, nil
}

func (g *GitHub) Load(ctx context.Context) (Snapshot, error) {
	c, err := g.contents(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	// the API wraps base64 content every 60 characters
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(c.Content)
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("github content: %w", err)
	}
	return Snapshot{Data: data, Version: c.SHA}, nil
}

func (g *GitHub) Version(ctx context.Context) (string, error) {
	c, err := g.contents(ctx)
	if err != nil {
		return "", err
	}
	return c.SHA, nil
}

// Save reads the current blob sha and writes the new content against it.
// A missing file is created.
func (g *GitHub) Save(ctx context.Context, data []byte) (string, error) {
	sha := ""
	c, err := g.contents(ctx)
	switch {
	case err == nil:
		sha = c.SHA
	case isNotFound(err):
	default:
		return "", fmt.Errorf("github sha: %w", err)
	}

	pretty := data
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err == nil {
		pretty = buf.Bytes()
	}

	payload := map[string]string{
		"message": fmt.Sprintf("🔄 Mise à jour via API (%s)", g.now().In(g.cfg.Location).Format("02/01/2006 15:04:05")),
		"content": base64.StdEncoding.EncodeToString(pretty),
		"branch":  g.cfg.Branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}
	body, _ := json.Marshal(payload)

	req, err := g.newRequest(ctx, http.MethodPut, g.contentsURL(false), body)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("github put: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError("github", resp)
	}
	var out struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("github decode: %w", err)
	}
	return out.Content.SHA, nil
}
