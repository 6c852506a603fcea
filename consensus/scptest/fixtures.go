package scptest

import (
	"fmt"

	"github.com/rjwalters/fbascp/consensus"
)

// NodeID builds the test node identity scheme used throughout this package
// and in original_source/consensus/scp/src/test_utils.rs's test_node_id:
// node index n maps to a short, deterministic, human-readable ID.
func NodeID(n int) consensus.NodeID {
	return consensus.NodeID(fmt.Sprintf("node%d", n))
}

// ThreeNodeCycle returns the three-node cyclic topology from test_utils.rs:
// each node trusts only its successor at threshold 1, so {2} is a blocking
// set for node 1, {3} for node 2, {1} for node 3, and the only quorum is all
// three nodes together.
func ThreeNodeCycle() map[consensus.NodeID]consensus.QuorumSet {
	return map[consensus.NodeID]consensus.QuorumSet{
		NodeID(1): {Threshold: 1, Members: []consensus.QuorumSetMember{consensus.NodeMember(NodeID(2))}},
		NodeID(2): {Threshold: 1, Members: []consensus.QuorumSetMember{consensus.NodeMember(NodeID(3))}},
		NodeID(3): {Threshold: 1, Members: []consensus.QuorumSetMember{consensus.NodeMember(NodeID(1))}},
	}
}

// FigTwoNetwork returns the four-node network from Fig. 2 of the Stellar
// whitepaper, also reproduced in test_utils.rs's fig_2_network: node 1
// trusts {2,3} at threshold 2; nodes 2, 3 and 4 all trust {2,3,4} at
// threshold 2. The only quorum is all four nodes together.
func FigTwoNetwork() map[consensus.NodeID]consensus.QuorumSet {
	return map[consensus.NodeID]consensus.QuorumSet{
		NodeID(1): {Threshold: 2, Members: []consensus.QuorumSetMember{
			consensus.NodeMember(NodeID(2)), consensus.NodeMember(NodeID(3)),
		}},
		NodeID(2): {Threshold: 2, Members: []consensus.QuorumSetMember{
			consensus.NodeMember(NodeID(3)), consensus.NodeMember(NodeID(4)),
		}},
		NodeID(3): {Threshold: 2, Members: []consensus.QuorumSetMember{
			consensus.NodeMember(NodeID(2)), consensus.NodeMember(NodeID(4)),
		}},
		NodeID(4): {Threshold: 2, Members: []consensus.QuorumSetMember{
			consensus.NodeMember(NodeID(2)), consensus.NodeMember(NodeID(4)),
		}},
	}
}

// ThreeNodeDenseGraph returns a three-node network where each pair of nodes
// is itself a blocking set for the third, matching test_utils.rs's
// three_node_dense_graph. The only quorum is all three nodes together.
func ThreeNodeDenseGraph() map[consensus.NodeID]consensus.QuorumSet {
	return map[consensus.NodeID]consensus.QuorumSet{
		NodeID(1): {Threshold: 2, Members: []consensus.QuorumSetMember{
			consensus.NodeMember(NodeID(2)), consensus.NodeMember(NodeID(3)),
		}},
		NodeID(2): {Threshold: 2, Members: []consensus.QuorumSetMember{
			consensus.NodeMember(NodeID(1)), consensus.NodeMember(NodeID(3)),
		}},
		NodeID(3): {Threshold: 2, Members: []consensus.QuorumSetMember{
			consensus.NodeMember(NodeID(1)), consensus.NodeMember(NodeID(2)),
		}},
	}
}
