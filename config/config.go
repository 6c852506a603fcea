// Package config loads a node's static configuration from YAML, the format
// the rest of the retrieved example pack (octoreflex, and much of the wider
// Go ecosystem) uses for this purpose; the teacher's coinkit forks have no
// config file of their own, so this is an addition to the ambient stack
// rather than a generalization of existing teacher code.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rjwalters/fbascp/consensus"
)

// QuorumSetConfig mirrors consensus.QuorumSet for YAML, since QuorumSet's
// Members field mixes two alternatives (a node reference or a nested set)
// that yaml.v3 cannot unmarshal directly into a Go sum type.
type QuorumSetConfig struct {
	Threshold uint32             `yaml:"threshold"`
	Members   []QuorumMemberConfig `yaml:"members"`
}

// QuorumMemberConfig holds exactly one of NodeID or Inner, selected by
// which key is present in the YAML document.
type QuorumMemberConfig struct {
	NodeID string            `yaml:"node,omitempty"`
	Inner  *QuorumSetConfig  `yaml:"inner,omitempty"`
}

// Build converts the YAML-shaped config into a consensus.QuorumSet,
// validating it along the way. resolve maps the human-readable node labels
// used in the YAML document (e.g. "node2") to the consensus.NodeID actually
// in use -- an identity.KeyPair-derived public key is not something a
// config file can name literally ahead of time, so quorum members are
// written as labels and resolved once every node's key pair is known.
func (c QuorumSetConfig) Build(resolve func(label string) (consensus.NodeID, bool)) (consensus.QuorumSet, error) {
	qs := consensus.QuorumSet{Threshold: c.Threshold}
	for _, m := range c.Members {
		switch {
		case m.Inner != nil:
			inner, err := m.Inner.Build(resolve)
			if err != nil {
				return consensus.QuorumSet{}, err
			}
			qs.Members = append(qs.Members, consensus.InnerMember(inner))
		case m.NodeID != "":
			id, ok := resolve(m.NodeID)
			if !ok {
				return consensus.QuorumSet{}, fmt.Errorf("config: unknown node label %q", m.NodeID)
			}
			qs.Members = append(qs.Members, consensus.NodeMember(id))
		default:
			return consensus.QuorumSet{}, fmt.Errorf("config: quorum set member must set either node or inner")
		}
	}
	if err := qs.Validate(); err != nil {
		return consensus.QuorumSet{}, err
	}
	return qs, nil
}

// ArchiveConfig names the optional Postgres archive a node should write its
// externalized slots to (see package store); the archive key is omitted
// from a node's YAML document entirely when archiving is not wanted.
type ArchiveConfig struct {
	Host   string `yaml:"host"`
	Port   string `yaml:"port"`
	DBName string `yaml:"db_name"`
	User   string `yaml:"user"`
}

// NodeConfig is the top-level document a node process loads at startup.
type NodeConfig struct {
	NodeID       string         `yaml:"node_id"`
	SecretPhrase string         `yaml:"secret_phrase"`
	ListenAddr   string         `yaml:"listen_addr"`
	Peers        []string       `yaml:"peers"`
	QuorumSet    QuorumSetConfig `yaml:"quorum_set"`
	LogLevel     string         `yaml:"log_level"`
	MetricsAddr  string         `yaml:"metrics_addr"`
	Archive      *ArchiveConfig `yaml:"archive,omitempty"`
}

// Load reads and parses a NodeConfig document from path.
func Load(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg NodeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
