package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rjwalters/fbascp/consensus"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadParsesNodeDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "node1.yaml", `
node_id: node1
secret_phrase: test-phrase-1
quorum_set:
  threshold: 2
  members:
    - node: node2
    - node: node3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NodeID != "node1" || cfg.SecretPhrase != "test-phrase-1" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level \"info\", got %q", cfg.LogLevel)
	}
	if cfg.QuorumSet.Threshold != 2 || len(cfg.QuorumSet.Members) != 2 {
		t.Fatalf("unexpected quorum set: %+v", cfg.QuorumSet)
	}
}

func TestQuorumSetConfigBuildResolvesLabelsAndNestedSets(t *testing.T) {
	c := QuorumSetConfig{
		Threshold: 2,
		Members: []QuorumMemberConfig{
			{NodeID: "node2"},
			{Inner: &QuorumSetConfig{
				Threshold: 1,
				Members:   []QuorumMemberConfig{{NodeID: "node3"}},
			}},
		},
	}
	labels := map[string]consensus.NodeID{"node2": "pk-2", "node3": "pk-3"}
	resolve := func(label string) (consensus.NodeID, bool) {
		id, ok := labels[label]
		return id, ok
	}

	qs, err := c.Build(resolve)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if qs.Threshold != 2 || len(qs.Members) != 2 {
		t.Fatalf("unexpected quorum set: %+v", qs)
	}
	if !qs.Members[0].IsNode() || qs.Members[0].Node != "pk-2" {
		t.Errorf("expected first member to be a resolved node reference, got %+v", qs.Members[0])
	}
	if qs.Members[1].IsNode() || qs.Members[1].Inner == nil || len(qs.Members[1].Inner.Members) != 1 {
		t.Fatalf("expected second member to be a resolved inner set, got %+v", qs.Members[1])
	}
	if qs.Members[1].Inner.Members[0].Node != "pk-3" {
		t.Errorf("expected nested member resolved to pk-3, got %+v", qs.Members[1].Inner.Members[0])
	}
}

func TestQuorumSetConfigBuildRejectsUnknownLabel(t *testing.T) {
	c := QuorumSetConfig{Threshold: 1, Members: []QuorumMemberConfig{{NodeID: "ghost"}}}
	resolve := func(string) (consensus.NodeID, bool) { return "", false }

	if _, err := c.Build(resolve); err == nil {
		t.Error("expected an error resolving an unknown node label")
	}
}
