package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/otec/internal/logging"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScript(t *testing.T) {
	path := writeScript(t, `
entity: 3
initial: "hello world"
agents: [alice, bob]
steps:
  - agent: alice
    mutations:
      - {kind: insert, pos: 5, text: ","}
  - sync: true
`)
	s, err := LoadScript(path)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Entity)
	assert.Equal(t, []string{"alice", "bob"}, s.Agents)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, "insert", s.Steps[0].Mutations[0]["kind"])
	assert.True(t, s.Steps[1].Sync)
}

func TestScript_Validate(t *testing.T) {
	tests := []struct {
		name   string
		script Script
	}{
		{"No Agents", Script{}},
		{"Duplicate Agent", Script{Agents: []string{"a", "a"}}},
		{"Unknown Agent", Script{Agents: []string{"a"}, Steps: []Step{{Agent: "b"}}}},
		{"Edit And Sync", Script{Agents: []string{"a"}, Steps: []Step{{Agent: "a", Sync: true}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.script.Validate())
		})
	}
}

func TestReplay_Converges(t *testing.T) {
	s := &Script{
		Entity:  1,
		Initial: "hello world",
		Agents:  []string{"alice", "bob"},
		Steps: []Step{
			{Agent: "alice", Mutations: []map[string]any{{"kind": "insert", "pos": 5, "text": ","}}},
			{Agent: "bob", Mutations: []map[string]any{{"kind": "insert", "pos": 11, "text": "!"}}},
			{Sync: true},
			{Agent: "bob", Mutations: []map[string]any{{"kind": "delete", "pos": 0, "len": 1}}},
			{Agent: "bob", Mutations: []map[string]any{{"kind": "insert", "pos": 0, "text": "H"}}},
		},
	}

	res, err := Replay(context.Background(), s, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	require.Len(t, res.Agents, 2)
	for _, a := range res.Agents {
		assert.Equal(t, "Hello, world!", a.Content, a.Name)
		assert.Equal(t, 5, a.Revision, a.Name)
		assert.Len(t, a.History, 5, a.Name)
	}
}

func TestReplay_ConcurrentDuplicateEdits(t *testing.T) {
	s := &Script{
		Entity: 1,
		Agents: []string{"alice", "bob"},
		Steps: []Step{
			{Agent: "alice", Mutations: []map[string]any{{"kind": "insert", "pos": 0, "text": "x"}}},
			{Agent: "bob", Mutations: []map[string]any{{"kind": "insert", "pos": 0, "text": "x"}}},
		},
	}

	res, err := Replay(context.Background(), s, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	for _, a := range res.Agents {
		assert.Equal(t, "x", a.Content)
		assert.Equal(t, 1, a.Revision)
	}
}

func TestReplay_BadMutation(t *testing.T) {
	s := &Script{
		Entity: 1,
		Agents: []string{"alice"},
		Steps: []Step{
			{Agent: "alice", Mutations: []map[string]any{{"kind": "rotate"}}},
		},
	}

	_, err := Replay(context.Background(), s, logging.NewNop(), domain.LifecycleHooks{})
	assert.ErrorContains(t, err, "step 0")
}

func TestPrintReplay(t *testing.T) {
	s := &Script{
		Entity:  1,
		Initial: "ab",
		Agents:  []string{"alice", "bob"},
	}
	res, err := Replay(context.Background(), s, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PrintReplay(&buf, res, true))

	out := buf.String()
	assert.Contains(t, out, `alice (rev 1): "ab"`)
	assert.Contains(t, out, `bob (rev 1): "ab"`)
	assert.Contains(t, out, "REV")
	assert.Contains(t, out, "converged")
}

func TestReplay_WarnsBeyondTwoAgents(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSON(&buf, slog.LevelWarn)

	s := &Script{Entity: 1, Initial: "ab", Agents: []string{"alice", "bob"}}
	_, err := Replay(context.Background(), s, logger, domain.LifecycleHooks{})
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	s.Agents = append(s.Agents, "carol")
	res, err := Replay(context.Background(), s, logger, domain.LifecycleHooks{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "only guaranteed for two agents")
	assert.Len(t, res.Agents, 3)
}
