package scptest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rjwalters/fbascp/consensus"
)

// ParseQuorumSet parses the compact shorthand used throughout this package's
// fixtures and throughout original_source's own test suite (via a pest
// grammar we don't have a Go equivalent for in the example pack, so this is
// a small hand-rolled recursive-descent parser instead):
//
//	"([3],1,2,3,4,([2],5,6,([1],7,8)))"
//
// The threshold is bracketed, followed by a comma-separated list of either
// bare node indices (mapped through NodeID) or nested quorum sets in the
// same shorthand. No whitespace is permitted anywhere in the string.
func ParseQuorumSet(s string) (consensus.QuorumSet, error) {
	p := &qsParser{input: s}
	qs, err := p.parseQuorumSet()
	if err != nil {
		return consensus.QuorumSet{}, err
	}
	if p.pos != len(p.input) {
		return consensus.QuorumSet{}, fmt.Errorf("scptest: unexpected trailing input at %d: %q", p.pos, p.input[p.pos:])
	}
	return qs, nil
}

// FormatQuorumSet renders qs back into the shorthand ParseQuorumSet accepts,
// provided every node in qs was produced by NodeID (i.e. named "nodeN").
func FormatQuorumSet(qs consensus.QuorumSet) (string, error) {
	var b strings.Builder
	if err := formatInto(&b, qs); err != nil {
		return "", err
	}
	return b.String(), nil
}

func formatInto(b *strings.Builder, qs consensus.QuorumSet) error {
	fmt.Fprintf(b, "([%d]", qs.Threshold)
	for _, m := range qs.Members {
		b.WriteByte(',')
		if m.IsNode() {
			idx, err := recoverNodeIndex(m.Node)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, "%d", idx)
			continue
		}
		if err := formatInto(b, *m.Inner); err != nil {
			return err
		}
	}
	b.WriteByte(')')
	return nil
}

func recoverNodeIndex(id consensus.NodeID) (int, error) {
	const prefix = "node"
	s := string(id)
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("scptest: node id %q was not produced by scptest.NodeID", s)
	}
	return strconv.Atoi(strings.TrimPrefix(s, prefix))
}

type qsParser struct {
	input string
	pos   int
}

func (p *qsParser) parseQuorumSet() (consensus.QuorumSet, error) {
	if !p.consume('(') {
		return consensus.QuorumSet{}, p.errorf("expected '('")
	}
	if !p.consume('[') {
		return consensus.QuorumSet{}, p.errorf("expected '['")
	}
	threshold, err := p.parseDigits()
	if err != nil {
		return consensus.QuorumSet{}, err
	}
	if !p.consume(']') {
		return consensus.QuorumSet{}, p.errorf("expected ']'")
	}

	qs := consensus.QuorumSet{Threshold: uint32(threshold)}
	for p.consume(',') {
		member, err := p.parseMember()
		if err != nil {
			return consensus.QuorumSet{}, err
		}
		qs.Members = append(qs.Members, member)
	}
	if !p.consume(')') {
		return consensus.QuorumSet{}, p.errorf("expected ')'")
	}
	return qs, nil
}

func (p *qsParser) parseMember() (consensus.QuorumSetMember, error) {
	if p.peek() == '(' {
		inner, err := p.parseQuorumSet()
		if err != nil {
			return consensus.QuorumSetMember{}, err
		}
		return consensus.InnerMember(inner), nil
	}
	n, err := p.parseDigits()
	if err != nil {
		return consensus.QuorumSetMember{}, err
	}
	return consensus.NodeMember(NodeID(n)), nil
}

func (p *qsParser) parseDigits() (int, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected digits")
	}
	return strconv.Atoi(p.input[start:p.pos])
}

func (p *qsParser) consume(c byte) bool {
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *qsParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *qsParser) errorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("scptest: %s at position %d in %q", msg, p.pos, p.input)
}
