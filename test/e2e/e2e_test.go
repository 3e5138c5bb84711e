//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/voicerag/internal/cli/client"
)

type catalogItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error"`
}

type knowledgeResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

func createAgent(t *testing.T, env *E2ETestEnv, name string) catalogItem {
	t.Helper()
	resp, err := env.Post("/agents", map[string]string{"name": name})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var agent catalogItem
	require.NoError(t, resp.Decode(&agent))
	require.NotEmpty(t, agent.ID)
	return agent
}

func createKnowledgeBase(t *testing.T, env *E2ETestEnv, name string) catalogItem {
	t.Helper()
	resp, err := env.Post("/knowledge-bases", map[string]string{"name": name})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var kb catalogItem
	require.NoError(t, resp.Decode(&kb))
	require.NotEmpty(t, kb.ID)
	return kb
}

func TestE2E_Health(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.DoAs("", http.MethodGet, "/health", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2E_RequiresAPIKey(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.DoAs("", http.MethodGet, "/agents", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = env.DoAs("vrg_"+"00000000000000000000000000000000"+"00000000000000000000000000000000", http.MethodGet, "/agents", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestE2E_MemoryLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	agent := createAgent(t, env, "Receptionist")
	memoriesPath := "/agents/" + agent.ID + "/memories"

	t.Run("save", func(t *testing.T) {
		resp, err := env.Post(memoriesPath, map[string]any{
			"content":  "Caller prefers morning appointments on Tuesdays",
			"metadata": map[string]any{"source": "call"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var mem struct {
			ID      string `json:"id"`
			AgentID string `json:"agent_id"`
			UserID  string `json:"user_id"`
		}
		require.NoError(t, resp.Decode(&mem))
		assert.NotEmpty(t, mem.ID)
		assert.Equal(t, agent.ID, mem.AgentID)
		assert.Equal(t, env.UserID, mem.UserID)

		_, err = env.Post(memoriesPath, map[string]any{"content": "Caller's dog is named Rex"})
		require.NoError(t, err)
	})

	t.Run("query returns closest memory first", func(t *testing.T) {
		resp, err := env.Post(memoriesPath+"/query", map[string]any{"query": "morning appointments", "limit": 2})
		require.NoError(t, err)

		var out struct {
			Results []struct {
				Content  string         `json:"content"`
				Score    float32        `json:"score"`
				Metadata map[string]any `json:"metadata"`
			} `json:"results"`
		}
		require.NoError(t, resp.Decode(&out))
		require.Len(t, out.Results, 2)
		assert.Equal(t, "Caller prefers morning appointments on Tuesdays", out.Results[0].Content)
		assert.Equal(t, "call", out.Results[0].Metadata["source"])
		assert.GreaterOrEqual(t, out.Results[0].Score, out.Results[1].Score)
	})

	t.Run("other users cannot read", func(t *testing.T) {
		_, otherToken := env.NewCaller("intruder@example.com")
		resp, err := env.DoAs(otherToken, http.MethodPost, memoriesPath+"/query", map[string]any{"query": "appointments"})
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("clear", func(t *testing.T) {
		resp, err := env.Delete(memoriesPath)
		require.NoError(t, err)

		var out struct {
			Deleted int `json:"deleted"`
		}
		require.NoError(t, resp.Decode(&out))
		assert.Equal(t, 2, out.Deleted)

		resp, err = env.Post(memoriesPath+"/query", map[string]any{"query": "morning appointments"})
		require.NoError(t, err)
		var after struct {
			Results []json.RawMessage `json:"results"`
		}
		require.NoError(t, resp.Decode(&after))
		assert.Empty(t, after.Results)
	})
}

func TestE2E_KnowledgeBaseIngestionAndQuery(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	kb := createKnowledgeBase(t, env, "Clinic FAQ")
	kbPath := "/knowledge-bases/" + kb.ID

	resp, err := env.Upload(kb.ID, "hours.md", "text/markdown",
		"# Opening hours\n\nThe clinic opens at nine in the morning and closes at six in the evening.")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var hours document
	require.NoError(t, resp.Decode(&hours))
	assert.Equal(t, "pending", hours.Status)

	resp, err = env.Post(kbPath+"/documents/text", map[string]string{
		"title": "parking",
		"text":  "Free parking is available behind the building.",
	})
	require.NoError(t, err)
	var parking document
	require.NoError(t, resp.Decode(&parking))
	assert.Equal(t, "parking.md", parking.Filename)

	env.RunIngestion()

	t.Run("documents are ready", func(t *testing.T) {
		for _, id := range []string{hours.ID, parking.ID} {
			resp, err := env.Get(kbPath + "/documents/" + id)
			require.NoError(t, err)
			var doc document
			require.NoError(t, resp.Decode(&doc))
			assert.Equal(t, "ready", doc.Status, doc.Error)
			assert.GreaterOrEqual(t, doc.ChunkCount, 1)
		}

		resp, err := env.Get(kbPath + "/documents")
		require.NoError(t, err)
		var page struct {
			Items []document `json:"items"`
		}
		require.NoError(t, resp.Decode(&page))
		assert.Len(t, page.Items, 2)
	})

	t.Run("query ranks matching document first", func(t *testing.T) {
		resp, err := env.Post(kbPath+"/query", map[string]any{"query": "when does the clinic open in the morning", "limit": 5})
		require.NoError(t, err)

		var out struct {
			Results []knowledgeResult `json:"results"`
		}
		require.NoError(t, resp.Decode(&out))
		require.NotEmpty(t, out.Results)
		assert.Equal(t, hours.ID, out.Results[0].DocumentID)
		assert.Contains(t, out.Results[0].Content, "nine in the morning")
		for i := 1; i < len(out.Results); i++ {
			assert.GreaterOrEqual(t, out.Results[i-1].Score, out.Results[i].Score)
		}
	})

	t.Run("ask grounds the answer and logs the query", func(t *testing.T) {
		resp, err := env.Post(kbPath+"/ask", map[string]any{"query": "when does the clinic open", "context_limit": 3})
		require.NoError(t, err)

		var answer struct {
			Response string `json:"response"`
			Sources  []struct {
				DocumentID string `json:"document_id"`
				ChunkID    string `json:"chunk_id"`
			} `json:"sources"`
		}
		require.NoError(t, resp.Decode(&answer))
		assert.Equal(t, "We open at nine in the morning.", answer.Response)
		require.NotEmpty(t, answer.Sources)
		assert.Equal(t, hours.ID, answer.Sources[0].DocumentID)
		assert.Contains(t, env.Generator.LastPrompt().User, "nine in the morning")

		ctx, cancel := context.WithTimeout(env.Ctx, 10*time.Second)
		defer cancel()
		require.NoError(t, env.Knowledge.Drain(ctx))

		resp, err = env.Get(kbPath + "/queries")
		require.NoError(t, err)
		var logs struct {
			Items []struct {
				UserID   string `json:"user_id"`
				Query    string `json:"query"`
				Response string `json:"response"`
			} `json:"items"`
		}
		require.NoError(t, resp.Decode(&logs))
		require.Len(t, logs.Items, 1)
		assert.Equal(t, env.UserID, logs.Items[0].UserID)
		assert.Equal(t, "when does the clinic open", logs.Items[0].Query)
	})

	t.Run("unsupported upload is rejected", func(t *testing.T) {
		resp, err := env.Upload(kb.ID, "greeting.wav", "audio/wav", "RIFF....WAVE")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("other users cannot query", func(t *testing.T) {
		_, otherToken := env.NewCaller("kb-intruder@example.com")
		resp, err := env.DoAs(otherToken, http.MethodPost, kbPath+"/query", map[string]any{"query": "parking"})
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestE2E_APIKeys(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	resp, err := env.Post("/api-keys", map[string]string{"name": "second line"})
	require.NoError(t, err)
	var created struct {
		Token string `json:"token"`
	}
	require.NoError(t, resp.Decode(&created))
	require.NotEmpty(t, created.Token)

	_, err = env.DoAs(created.Token, http.MethodGet, "/agents", nil)
	require.NoError(t, err)

	resp, err = env.Get("/api-keys")
	require.NoError(t, err)
	var keys struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	require.NoError(t, resp.Decode(&keys))
	var keyID string
	for _, k := range keys.Items {
		if k.Name == "second line" {
			keyID = k.ID
		}
	}
	require.NotEmpty(t, keyID)

	_, err = env.Delete("/api-keys/" + keyID)
	require.NoError(t, err)

	resp, err = env.DoAs(created.Token, http.MethodGet, "/agents", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestE2E_CLIAgainstServer(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()
	t.Setenv("HOME", t.TempDir())

	run := func(args ...string) string {
		t.Helper()
		root := client.NewRootCmd("e2e")
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"--api-key", env.AuthToken, "--api-url", env.ServerURL}, args...))
		require.NoError(t, root.Execute(), out.String())
		return out.String()
	}

	out := run("--output", "agent", "create", "Front desk")
	var agent catalogItem
	require.NoError(t, json.Unmarshal([]byte(out), &agent))
	assert.Equal(t, "Front desk", agent.Name)

	run("memory", "save", agent.ID, "Caller", "speaks", "Spanish")

	out = run("memory", "query", agent.ID, "Spanish")
	assert.Contains(t, out, "Caller speaks Spanish")

	out = run("agent", "list")
	assert.Contains(t, out, "Front desk")
}
