package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"DialogHarness/internal/dialog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	got := Prompt([]dialog.Act{
		dialog.NewAct("Inform", "Hotel", "Area", "north"),
		dialog.NewAct("Request", "Hotel", "Price", "?"),
		dialog.NewAct("reqmore", "general", "", ""),
	})
	assert.Equal(t, "Dialogue acts:\n- Hotel-Inform: Area = north\n- Hotel-Request: Price\n- general-reqmore\n", got)
}

func TestGenerator_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/responses"), r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"created_at": 0,
			"model": "gpt-4o",
			"status": "completed",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "It is in the north.", "annotations": []}]
			}]
		}`))
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	g := New(&client, "", nil)

	text, err := g.Generate(context.Background(), []any{[]any{"Inform", "Hotel", "Area", "north"}})
	require.NoError(t, err)
	assert.Equal(t, "It is in the north.", text)
	assert.Equal(t, "gpt-4o", body["model"])
}

func TestGenerator_Errors(t *testing.T) {
	g := New(nil, "gpt-4o", nil)
	_, err := g.Generate(context.Background(), []dialog.Act{dialog.NewAct("bye", "general", "", "")})
	assert.Error(t, err)

	client := openai.NewClient(option.WithAPIKey("test"))
	g = New(&client, "gpt-4o", nil)
	_, err = g.Generate(context.Background(), "{}")
	assert.Error(t, err)
}
