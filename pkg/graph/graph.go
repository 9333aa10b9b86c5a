// Package graph builds the validated lookup structure over a Play's nodes and
// edges. A Graph is constructed once per play load; all structural invariants
// are checked at build time so traversal never revalidates.
package graph

import (
	"errors"
	"fmt"

	"github.com/dealgrid/playrun/pkg/condition"
	"github.com/dealgrid/playrun/pkg/models"
)

// ErrMalformedPlay indicates a play whose graph violates a structural
// invariant: missing or ambiguous entry node, dangling edge endpoints, a
// cycle, an ambiguous unconditional fan-out or an unparseable guard. Fatal,
// surfaced before any execution attempt.
var ErrMalformedPlay = errors.New("malformed play")

// Graph is the immutable adjacency view of one Play.
type Graph struct {
	play     *models.Play
	nodes    map[string]*models.WorkflowNode
	outgoing map[string][]*models.WorkflowEdge
	incoming map[string][]*models.WorkflowEdge
	entry    *models.WorkflowNode
}

// New validates the play and builds its lookup structure.
func New(play *models.Play) (*Graph, error) {
	if play == nil {
		return nil, fmt.Errorf("%w: play is nil", ErrMalformedPlay)
	}

	if len(play.Nodes) == 0 {
		return nil, fmt.Errorf("%w: play %s has no nodes", ErrMalformedPlay, play.ID)
	}

	g := &Graph{
		play:     play,
		nodes:    make(map[string]*models.WorkflowNode, len(play.Nodes)),
		outgoing: make(map[string][]*models.WorkflowEdge),
		incoming: make(map[string][]*models.WorkflowEdge),
	}

	for _, node := range play.Nodes {
		if _, exists := g.nodes[node.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrMalformedPlay, node.ID)
		}

		g.nodes[node.ID] = node
	}

	for _, edge := range play.Edges {
		if _, ok := g.nodes[edge.FromNodeID]; !ok {
			return nil, fmt.Errorf("%w: edge %s references unknown node %q", ErrMalformedPlay, edge.ID, edge.FromNodeID)
		}

		if _, ok := g.nodes[edge.ToNodeID]; !ok {
			return nil, fmt.Errorf("%w: edge %s references unknown node %q", ErrMalformedPlay, edge.ID, edge.ToNodeID)
		}

		if err := condition.Validate(edge.Condition); err != nil {
			return nil, fmt.Errorf("%w: edge %s: %v", ErrMalformedPlay, edge.ID, err)
		}

		g.outgoing[edge.FromNodeID] = append(g.outgoing[edge.FromNodeID], edge)
		g.incoming[edge.ToNodeID] = append(g.incoming[edge.ToNodeID], edge)
	}

	if err := g.resolveEntry(); err != nil {
		return nil, err
	}

	if err := g.checkFanOut(); err != nil {
		return nil, err
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	return g, nil
}

// Play returns the underlying play definition.
func (g *Graph) Play() *models.Play {
	return g.play
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(nodeID string) *models.WorkflowNode {
	return g.nodes[nodeID]
}

// OutgoingEdges returns the edges leaving the given node.
func (g *Graph) OutgoingEdges(nodeID string) []*models.WorkflowEdge {
	return g.outgoing[nodeID]
}

// IncomingEdges returns the edges entering the given node.
func (g *Graph) IncomingEdges(nodeID string) []*models.WorkflowEdge {
	return g.incoming[nodeID]
}

// EntryNode returns the unique node with no incoming edges.
func (g *Graph) EntryNode() *models.WorkflowNode {
	return g.entry
}

// IsTerminal reports whether the node has no outgoing edges.
func (g *Graph) IsTerminal(nodeID string) bool {
	return len(g.outgoing[nodeID]) == 0
}

// TerminalNodes returns every node with no outgoing edges.
func (g *Graph) TerminalNodes() []*models.WorkflowNode {
	terminals := make([]*models.WorkflowNode, 0, 1)

	for _, node := range g.play.Nodes {
		if g.IsTerminal(node.ID) {
			terminals = append(terminals, node)
		}
	}

	return terminals
}

func (g *Graph) resolveEntry() error {
	var entry *models.WorkflowNode

	for _, node := range g.play.Nodes {
		if len(g.incoming[node.ID]) > 0 {
			continue
		}

		if entry != nil {
			return fmt.Errorf("%w: multiple entry nodes (%q and %q)", ErrMalformedPlay, entry.ID, node.ID)
		}

		entry = node
	}

	if entry == nil {
		return fmt.Errorf("%w: no entry node", ErrMalformedPlay)
	}

	g.entry = entry

	return nil
}

// checkFanOut enforces that a node with multiple outgoing edges carries at
// most one unconditional fallback, otherwise the frontier is ambiguous.
func (g *Graph) checkFanOut() error {
	for nodeID, edges := range g.outgoing {
		if len(edges) < 2 {
			continue
		}

		unconditional := 0

		for _, edge := range edges {
			if edge.Unconditional() {
				unconditional++
			}
		}

		if unconditional > 1 {
			return fmt.Errorf("%w: node %q has %d unconditional outgoing edges", ErrMalformedPlay, nodeID, unconditional)
		}
	}

	return nil
}

// checkAcyclic runs Kahn's algorithm; any node left with a positive indegree
// sits on a cycle.
func (g *Graph) checkAcyclic() error {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.incoming[id])
	}

	queue := make([]string, 0, len(g.nodes))

	for id, degree := range indegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		for _, edge := range g.outgoing[id] {
			indegree[edge.ToNodeID]--
			if indegree[edge.ToNodeID] == 0 {
				queue = append(queue, edge.ToNodeID)
			}
		}
	}

	if visited != len(g.nodes) {
		return fmt.Errorf("%w: play %s contains a cycle", ErrMalformedPlay, g.play.ID)
	}

	return nil
}
