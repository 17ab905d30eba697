package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContents struct {
	t       *testing.T
	content []byte
	sha     string
	puts    []map[string]string
}

func (f *fakeContents) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "token secret", r.Header.Get("Authorization"))
		assert.Equal(f.t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.Equal(f.t, "/repos/club/planning/contents/data.json", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			assert.Equal(f.t, "main", r.URL.Query().Get("ref"))
			if f.content == nil {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"message":"Not Found"}`)
				return
			}
			enc := base64.StdEncoding.EncodeToString(f.content)
			// GitHub wraps the payload
			if len(enc) > 10 {
				enc = enc[:10] + "\n" + enc[10:]
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"content": enc, "encoding": "base64", "sha": f.sha})
		case http.MethodPut:
			var body map[string]string
			assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
			f.puts = append(f.puts, body)
			if body["sha"] != f.sha {
				w.WriteHeader(http.StatusConflict)
				return
			}
			f.content, _ = base64.StdEncoding.DecodeString(body["content"])
			f.sha = f.sha + "x"
			_ = json.NewEncoder(w).Encode(map[string]any{"content": map[string]string{"sha": f.sha}})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestGitHub(t *testing.T, f *fakeContents) *GitHub {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	g := NewGitHub(GitHubConfig{Token: "secret", Repo: "club/planning", BaseURL: srv.URL, Location: time.UTC})
	g.now = func() time.Time { return time.Date(2024, 6, 10, 18, 30, 5, 0, time.UTC) }
	return g
}

func TestGitHub_LoadDecodesContent(t *testing.T) {
	f := &fakeContents{t: t, content: []byte(`[{"id":1}]`), sha: "abc"}
	g := newTestGitHub(t, f)

	snap, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(snap.Data))
	assert.Equal(t, "abc", snap.Version)

	v, err := g.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestGitHub_SaveUsesCurrentSHA(t *testing.T) {
	f := &fakeContents{t: t, content: []byte(`[]`), sha: "abc"}
	g := newTestGitHub(t, f)

	v, err := g.Save(context.Background(), []byte(`[{"id":1}]`))
	require.NoError(t, err)
	assert.Equal(t, "abcx", v)

	require.Len(t, f.puts, 1)
	put := f.puts[0]
	assert.Equal(t, "abc", put["sha"])
	assert.Equal(t, "main", put["branch"])
	assert.Equal(t, "🔄 Mise à jour via API (10/06/2024 18:30:05)", put["message"])
	assert.Equal(t, "[\n  {\n    \"id\": 1\n  }\n]", string(f.content))
}

func TestGitHub_SaveCreatesMissingFile(t *testing.T) {
	f := &fakeContents{t: t}
	g := newTestGitHub(t, f)

	_, err := g.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = g.Save(context.Background(), []byte(`[]`))
	require.NoError(t, err)
	require.Len(t, f.puts, 1)
	_, hasSHA := f.puts[0]["sha"]
	assert.False(t, hasSHA)
}

func TestGitHub_ConflictIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]string{"content": "", "sha": "old"})
			return
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"data.json does not match old"}`)
	}))
	defer srv.Close()
	g := NewGitHub(GitHubConfig{Repo: "club/planning", BaseURL: srv.URL})

	_, err := g.Save(context.Background(), []byte(`[]`))
	require.ErrorIs(t, err, ErrConflict)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, strings.Contains(se.Body, "does not match"))
}
