package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadCases(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, `
- q: "Délai de retour ?"
  expect: ["30", "jours", "retour-delai"]
- q: "Facture ?"
  expect: ["transf", "humain"]
`)

		cases, err := LoadCases(path)
		require.NoError(t, err)
		require.Len(t, cases, 2)
		assert.Equal(t, "Délai de retour ?", cases[0].Question)
		assert.Equal(t, []string{"transf", "humain"}, cases[1].Expect)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := LoadCases(writeFile(t, "[]\n"))
		assert.ErrorIs(t, err, ErrNoCases)
	})

	t.Run("case without tokens", func(t *testing.T) {
		_, err := LoadCases(writeFile(t, "- q: \"Facture ?\"\n"))
		assert.ErrorContains(t, err, "no expected tokens")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCases(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadCases_shipped_set(t *testing.T) {
	cases, err := LoadCases("../../eval/cases.yaml")
	require.NoError(t, err)
	assert.Len(t, cases, 34)
}

func TestPasses(t *testing.T) {
	reply := "Remboursement sous 5-10 jours après réception.\n\nSources: retours — remboursement (/docs#retour-remboursement)"

	assert.True(t, Passes(reply, []string{"5–10", "jours", "retour-remboursement"}))
	assert.True(t, Passes("Échange possible : même référence si stock.", []string{"meme", "reference", "stock"}))
	assert.False(t, Passes(reply, []string{"30", "jours"}))
}

func TestPercentile(t *testing.T) {
	ms := func(v ...int) []time.Duration {
		out := make([]time.Duration, len(v))
		for i, x := range v {
			out[i] = time.Duration(x) * time.Millisecond
		}

		return out
	}

	assert.Equal(t, time.Duration(0), Percentile(nil, 0.95))
	assert.Equal(t, 40*time.Millisecond, Percentile(ms(40), 0.95))
	// floor(0.95 * 9) = 8 → ninth smallest.
	assert.Equal(t, 900*time.Millisecond, Percentile(ms(1000, 100, 200, 300, 400, 500, 600, 700, 800, 900), 0.95))

	in := ms(3, 1, 2)
	Percentile(in, 0.5)
	assert.Equal(t, ms(3, 1, 2), in, "input must not be reordered")
}

func newChatServer(t *testing.T, replies map[string]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/support-chat", r.URL.Path)

		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error":"missing_message"}`))

			return
		}

		reply, ok := replies[req.Message]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"ok":false,"error":"retrieval_failed"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true, "reply": reply, "sources": []string{}, "matches": []any{},
			"needHandoff": false, "topSim": 0.91,
		})
	}))
}

func TestClient_Ask(t *testing.T) {
	srv := newChatServer(t, map[string]string{"Délai de retour ?": "30 jours."})
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL + "/", RetryMax: -1})

	answer, err := client.Ask(context.Background(), "Délai de retour ?")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, answer.StatusCode)
	assert.Equal(t, "30 jours.", answer.Reply)
	assert.InDelta(t, 0.91, answer.TopSim, 1e-9)

	answer, err = client.Ask(context.Background(), "inconnue")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, answer.StatusCode)
	assert.Empty(t, answer.Reply)
}

func TestClient_Ask_retries_server_errors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		_, _ = w.Write([]byte(`{"ok":true,"reply":"ok"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL, RetryMax: 2})
	client.httpClient.RetryWaitMin = time.Millisecond
	client.httpClient.RetryWaitMax = time.Millisecond

	answer, err := client.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer.Reply)
	assert.Equal(t, int32(2), calls.Load())
}

type askerFunc func(ctx context.Context, question string) (*Answer, error)

func (f askerFunc) Ask(ctx context.Context, question string) (*Answer, error) {
	return f(ctx, question)
}

func TestRunner_Run(t *testing.T) {
	cases := []Case{
		{Question: "Délai de retour ?", Expect: []string{"30", "jours", "retour-delai"}},
		{Question: "Facture ?", Expect: []string{"transf", "humain"}},
		{Question: "Frais de port ?", Expect: []string{"4,90", "livraison-frais"}},
	}

	asker := askerFunc(func(_ context.Context, question string) (*Answer, error) {
		switch question {
		case "Délai de retour ?":
			return &Answer{
				Reply:   "30 jours.\n\nSources: retours — délai (/docs#retour-delai)",
				Latency: 300 * time.Millisecond,
			}, nil
		case "Facture ?":
			return &Answer{Reply: "Je préfère transférer à un humain.", Latency: 100 * time.Millisecond}, nil
		default:
			return nil, errors.New("connection refused")
		}
	})

	var out bytes.Buffer

	report, err := NewRunner(asker, &out, -1).Run(context.Background(), cases)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 2, report.Passed)
	assert.True(t, report.Failed())
	assert.Equal(t, 100*time.Millisecond, report.P95)
	require.Error(t, report.Results[2].Err)

	assert.Contains(t, out.String(), "PASS Délai de retour ? | 0.30s")
	assert.Contains(t, out.String(), "FAIL Frais de port ?")
	assert.Contains(t, out.String(), "error : connection refused")
	assert.Contains(t, out.String(), "Score: 2/3")
}

func TestRunner_Run_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	asker := askerFunc(func(context.Context, string) (*Answer, error) {
		cancel()

		return &Answer{Reply: "x"}, nil
	})

	report, err := NewRunner(asker, &bytes.Buffer{}, time.Hour).Run(ctx, []Case{
		{Question: "a", Expect: []string{"x"}},
		{Question: "b", Expect: []string{"x"}},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
}
