package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/governor/internal/config"
	"github.com/zeusync/governor/internal/core/delivery"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPath, "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "silent"))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseTrace(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []segment
		wantErr bool
	}{
		{name: "two segments", input: "60x60,35x120", want: []segment{{60, 60}, {35, 120}}},
		{name: "spaces and fractions", input: " 59.5x3 , 20x1", want: []segment{{59.5, 3}, {20, 1}}},
		{name: "missing separator", input: "60", wantErr: true},
		{name: "zero fps", input: "0x10", wantErr: true},
		{name: "negative count", input: "60x-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTrace(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimulateReportsTransition(t *testing.T) {
	out, err := execute(t, "simulate", "--trace", "60x60,35x200")
	require.NoError(t, err)
	assert.Contains(t, out, "full -> minimal")
	assert.Contains(t, out, "final level=minimal")
}

func TestSimulateStaysFullOnSmoothTrace(t *testing.T) {
	out, err := execute(t, "simulate", "--trace", "60x300")
	require.NoError(t, err)
	assert.NotContains(t, out, "->")
	assert.Contains(t, out, "final level=full")
}

func TestConfigPrintsOverrides(t *testing.T) {
	out, err := execute(t, "config", "--endpoint", "https://scores.example/api")
	require.NoError(t, err)
	assert.Contains(t, out, "endpoint: https://scores.example/api")
	assert.Contains(t, out, "window_size: 60")
}

func TestQueueLifecycle(t *testing.T) {
	store := filepath.Join(t.TempDir(), "scores.db")
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := execute(t, "queue", "submit", "--store", store, "--game", "snake", "--score", "77")
	require.NoError(t, err)
	assert.Contains(t, out, "queued")

	out, err = execute(t, "queue", "list", "--store", store, "--json")
	require.NoError(t, err)
	var records []delivery.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "snake", records[0].Payload.GameID)
	assert.Equal(t, int64(77), records[0].Payload.Score)

	out, err = execute(t, "queue", "list", "--store", store)
	require.NoError(t, err)
	for _, col := range []string{"ID", "GAME", "SCORE", "ATTEMPTS", "QUEUED"} {
		assert.Contains(t, out, col)
	}
	assert.Contains(t, out, "snake")
	assert.Contains(t, out, "77")

	out, err = execute(t, "queue", "drain", "--store", store, "--endpoint", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "delivered=1")
	assert.Contains(t, out, "remaining=0")
	assert.Equal(t, int32(1), received.Load())

	_, err = execute(t, "queue", "submit", "--store", store, "--game", "pong", "--score", "3")
	require.NoError(t, err)
	out, err = execute(t, "queue", "clear", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "queue cleared")

	out, err = execute(t, "queue", "list", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "no pending scores")
	assert.NotContains(t, out, "pong")
}

func TestSubmitRequiresGame(t *testing.T) {
	_, err := execute(t, "queue", "submit", "--store", filepath.Join(t.TempDir(), "s.db"))
	assert.Error(t, err)
}
