// Command fedvoted runs a small federated-voting demo cluster: one node per
// YAML document under --config-dir, wired into the Fig. 2 quorum topology
// from the Stellar whitepaper, proposing a handful of values and
// broadcasting rounds until every node externalizes the same slot. It is
// the spec's demo-cluster component (C14), grounded on the teacher's
// main.go (which spins up NODES coinkit servers listening on BASE_PORT+i)
// but in-process rather than over TCP, since the point here is to watch the
// state machine converge, not to exercise a wire transport. Unlike the
// teacher's demo, each node's identity, quorum topology, and (optionally)
// archive target are loaded the way a real deployment would load them,
// rather than hardcoded: an identity.KeyPair derived from the config's
// secret phrase, a consensus.QuorumSet built from the config's quorum_set
// block, and a prometheus-backed metrics.PrometheusSink per node.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rjwalters/fbascp/config"
	"github.com/rjwalters/fbascp/consensus"
	"github.com/rjwalters/fbascp/consensus/scptest"
	"github.com/rjwalters/fbascp/identity"
	"github.com/rjwalters/fbascp/logutil"
	"github.com/rjwalters/fbascp/metrics"
	"github.com/rjwalters/fbascp/store"
)

func main() {
	configDir := flag.String("config-dir", "cmd/fedvoted/configs", "directory of per-node YAML configs")
	rounds := flag.Int("rounds", 50, "maximum broadcast rounds before giving up")
	logLevel := flag.String("log-level", "", "override every config's log level (debug, info, warn, error)")
	flag.Parse()

	configs, err := loadConfigs(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fedvoted: %v\n", err)
		os.Exit(1)
	}
	level := *logLevel
	if level == "" {
		level = configs[0].LogLevel
	}
	if err := logutil.SetLevel(level); err != nil {
		fmt.Fprintf(os.Stderr, "fedvoted: invalid log level: %v\n", err)
		os.Exit(1)
	}

	// Each node's real identity is derived from its configured secret
	// phrase, not assigned out of band; the quorum_set blocks below
	// reference peers by the config's own node_id labels, resolved to real
	// identities once every node's key pair is known.
	idsByLabel := make(map[string]consensus.NodeID, len(configs))
	for _, cfg := range configs {
		idsByLabel[cfg.NodeID] = identity.NewKeyPairFromSecretPhrase(cfg.SecretPhrase).NodeID()
	}
	resolve := func(label string) (consensus.NodeID, bool) {
		id, ok := idsByLabel[label]
		return id, ok
	}

	registry := prometheus.NewRegistry()
	quorums := make(map[consensus.NodeID]consensus.QuorumSet, len(configs))
	sinks := make(map[consensus.NodeID]consensus.MetricsSink, len(configs))
	archives := make(map[consensus.NodeID]*store.Store, len(configs))

	for _, cfg := range configs {
		qs, err := cfg.QuorumSet.Build(resolve)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fedvoted: building quorum set for %s: %v\n", cfg.NodeID, err)
			os.Exit(1)
		}
		id := idsByLabel[cfg.NodeID]
		quorums[id] = qs

		sink, err := metrics.New(registry, cfg.NodeID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fedvoted: registering metrics for %s: %v\n", cfg.NodeID, err)
			os.Exit(1)
		}
		sinks[id] = sink

		if cfg.Archive != nil {
			s, err := store.New(store.Config{
				Host: cfg.Archive.Host, Port: cfg.Archive.Port,
				DBName: cfg.Archive.DBName, User: cfg.Archive.User,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "fedvoted: connecting archive for %s: %v\n", cfg.NodeID, err)
				os.Exit(1)
			}
			archives[id] = s
		}
	}

	net, err := scptest.NewNetworkWithSinks(quorums, sinks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fedvoted: building network: %v\n", err)
		os.Exit(1)
	}

	logutil.Logf("FV", "cluster", "starting demo cluster with %d nodes", len(net.Nodes))

	// Every node must nominate, not just one: Fig. 2's trust is asymmetric
	// (node1 trusts {2,3}, but 2/3/4 don't trust node1 back), so a node that
	// never votes for anything itself can never find a quorum slice that
	// agrees with it, no matter how many messages it receives.
	proposal := []scptest.Value{1000, 2000}
	for id, n := range net.Nodes {
		n.Nominate(proposal)
		logutil.Logf("FV", string(id), "proposed values %v", proposal)
	}

	if !net.RunUntilConverged(*rounds) {
		logutil.Errorf("FV", "cluster", "did not converge within %d rounds", *rounds)
		os.Exit(1)
	}

	for id, values := range net.ExternalizedValues() {
		logutil.Logf("FV", string(id), "externalized %v", values)
		if s, ok := archives[id]; ok {
			slotIndex := net.Nodes[id].History()[0].Index
			if err := s.Archive(uint64(slotIndex), string(id), values); err != nil {
				logutil.Errorf("FV", string(id), "archiving externalized slot: %v", err)
			}
		}
	}

	for id, n := range net.Nodes {
		m := n.Metrics()
		logutil.Logf("FV", string(id), "final phase=%s ballot_n=%d cn=%d hn=%d",
			m.Phase.String(), m.BallotCounter, m.CN, m.HN)
	}

	families, err := registry.Gather()
	if err != nil {
		logutil.Errorf("FV", "cluster", "gathering metrics: %v", err)
	} else {
		logutil.Logf("FV", "cluster", "collected %d prometheus metric families", len(families))
	}
}

func loadConfigs(dir string) ([]*config.NodeConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading config dir %s: %w", dir, err)
	}
	var configs []*config.NodeConfig
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		cfg, err := config.Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no node configs found in %s", dir)
	}
	return configs, nil
}
