package remote

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"DialogHarness/internal/dialog"
	"DialogHarness/internal/nlg/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const hotelActs = `[["Request","Hotel","Area","?"],["Request","Hotel","Price","?"]]`

func observed() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func jsonService(t *testing.T, status int, body string, seen *[]request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = append(*seen, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func seededNLG(t *testing.T) *template.NLG {
	t.Helper()
	g, err := template.New(false, rand.New(rand.NewSource(20200720)))
	require.NoError(t, err)
	return g
}

func TestAdapter_Response_MatchesGenerator(t *testing.T) {
	var seen []request
	srv := jsonService(t, http.StatusOK, hotelActs, &seen)

	a := New(seededNLG(t), "sys", WithEndpoint(srv.URL))
	got := a.Response(context.Background(), "I need a hotel")

	var prediction any
	require.NoError(t, json.Unmarshal([]byte(hotelActs), &prediction))
	want, err := seededNLG(t).Generate(context.Background(), prediction)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.NotEmpty(t, got)
	require.Len(t, seen, 1)
	assert.Equal(t, request{Input: "I need a hotel", ID: a.SessionID()}, seen[0])
}

func TestAdapter_Response_HTTP500_DegradesToEmpty(t *testing.T) {
	srv := jsonService(t, http.StatusInternalServerError, `{"error":"boom"}`, nil)
	logger, logs := observed()

	a := New(seededNLG(t), "sys", WithEndpoint(srv.URL), WithLogger(logger))
	got := a.Response(context.Background(), "I need a hotel")

	assert.Equal(t, "", got)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].ContextMap()["error"], "status=500")
}

func TestAdapter_Respond_Failures(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	tests := []struct {
		name     string
		endpoint string
		nlg      dialog.Generator
	}{
		{"connection refused", closed.URL, seededNLG(t)},
		{"status 404", jsonService(t, http.StatusNotFound, "", nil).URL, seededNLG(t)},
		{"malformed json", jsonService(t, http.StatusOK, `{"acts": [`, nil).URL, seededNLG(t)},
		{"unsupported prediction", jsonService(t, http.StatusOK, `42`, nil).URL, seededNLG(t)},
		{"generator error", jsonService(t, http.StatusOK, hotelActs, nil).URL, dialog.GeneratorFunc(func(context.Context, any) (string, error) {
			return "", errors.New("nlg down")
		})},
		{"nil generator", jsonService(t, http.StatusOK, hotelActs, nil).URL, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.nlg, "sys", WithEndpoint(tt.endpoint))
			res := a.Respond(context.Background(), "hello")
			assert.False(t, res.OK())
			assert.Empty(t, res.Text)
			assert.Equal(t, "", a.Response(context.Background(), "hello"))
		})
	}
}

func TestAdapter_SessionIdentifier(t *testing.T) {
	var seen []request
	srv := jsonService(t, http.StatusOK, `[["bye","general","none","none"]]`, &seen)
	a := New(seededNLG(t), "sys", WithEndpoint(srv.URL))

	first := a.SessionID()
	require.NotEmpty(t, first)

	a.Response(context.Background(), "one")
	a.Response(context.Background(), "two")
	require.Len(t, seen, 2)
	assert.Equal(t, first, seen[0].ID)
	assert.Equal(t, first, seen[1].ID)

	a.InitSession()
	assert.NotEqual(t, first, a.SessionID())

	a.SetSessionID("restored-session")
	assert.Equal(t, "restored-session", a.SessionID())
	a.Response(context.Background(), "three")
	assert.Equal(t, "restored-session", seen[2].ID)
}

func TestAdapter_Defaults(t *testing.T) {
	a := New(seededNLG(t), "sys", WithEndpoint("  "), WithHTTPClient(nil), WithLogger(nil))
	assert.Equal(t, DefaultEndpoint, a.Endpoint())
	assert.Equal(t, "sys", a.Name())
}

func TestAdapter_LogsTurn(t *testing.T) {
	srv := jsonService(t, http.StatusOK, hotelActs, nil)
	logger, logs := observed()

	a := New(seededNLG(t), "sys", WithEndpoint(srv.URL), WithLogger(logger))
	a.Response(context.Background(), "I need a hotel")

	msgs := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"user", "remote", "sys"}, msgs)
	assert.Equal(t, hotelActs, logs.All()[1].ContextMap()["raw"])
}
