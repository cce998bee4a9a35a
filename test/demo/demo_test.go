//go:build integration_test

package demo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Demo flow against a running quizd instance: register, log in, play the
// whole quiz, then print the leaderboard.
const baseURL = "http://localhost:8080"

func TestQuiz(t *testing.T) {
	c := &client{t: t, http: &http.Client{Timeout: 10 * time.Second}}

	username := fmt.Sprintf("demo-%d", time.Now().Unix())

	c.post("/v1/register", map[string]any{
		"username": username,
		"password": "demo",
		"repeat":   "demo",
	})

	login := c.post("/v1/login", map[string]any{
		"username": username,
		"password": "demo",
	})
	c.token = login["token"].(string)

	for {
		view := c.get("/v1/quiz")
		if view["completed"].(bool) {
			summary := view["summary"].(map[string]any)
			t.Logf("Finished: score=%v/%v new_record=%v",
				summary["score"], summary["total"], summary["new_record"])
			break
		}

		q := view["question"].(map[string]any)
		t.Logf("Question %v/%v [%v]: %v", q["position"], q["total"], q["category"], q["text"])

		// Always answer the first option, or a fixed guess for fill-ins.
		answer := "?"
		if opts, ok := q["options"].([]any); ok && len(opts) > 0 {
			answer = opts[0].(string)
		}

		res := c.post("/v1/quiz/answer", map[string]any{"answer": answer})
		t.Logf("  answered %q: correct=%v score=%v", answer, res["correct"], res["score"])
	}

	board := c.get("/v1/leaderboard")
	for i, e := range board["entries"].([]any) {
		row := e.(map[string]any)
		t.Logf("#%d %v: %v", i+1, row["username"], row["high_score"])
	}
}

type client struct {
	t     *testing.T
	http  *http.Client
	token string
}

func (c *client) post(path string, body map[string]any) map[string]any {
	b, err := json.Marshal(body)
	require.NoError(c.t, err)

	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(b))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *client) get(path string) map[string]any {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	require.NoError(c.t, err)

	return c.do(req)
}

func (c *client) do(req *http.Request) map[string]any {
	if c.token != "" {
		req.Header.Set("X-Session-Token", c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	require.Less(c.t, resp.StatusCode, 300, "request %s %s failed", req.Method, req.URL.Path)

	out := make(map[string]any)
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return out
}
