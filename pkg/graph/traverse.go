package graph

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

// Traverse walks the graph breadth-first from start, following outgoing edges
// up to maxDepth hops (0 means unbounded), and calls visit once per reached
// entity. A visited set guards against cycles and self-loops, which are legal
// graph content.
func (s *Store) Traverse(start entity.Ref, relType *RelationshipType, maxDepth int, visit func(ref entity.Ref, depth int) error) error {
	if err := start.Validate(); err != nil {
		return err
	}
	visited := mapset.NewSet[entity.Ref]()
	type hop struct {
		ref   entity.Ref
		depth int
	}
	queue := []hop{{ref: start, depth: 0}}
	visited.Add(start)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if err := visit(cur.ref, cur.depth); err != nil {
			return err
		}
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}

		edges, err := s.Neighbors(cur.ref, DirectionOutgoing, relType)
		if err != nil {
			return fmt.Errorf("traverse at %s: %w", cur.ref, err)
		}
		for _, e := range edges {
			next := e.To()
			if visited.Contains(next) {
				continue
			}
			visited.Add(next)
			queue = append(queue, hop{ref: next, depth: cur.depth + 1})
		}
	}
	return nil
}

// Cycle is a data-quality finding: a path through the graph that returns to
// its starting entity. Cycles are stored without complaint; this reports them
// for operators to review.
type Cycle struct {
	Path []entity.Ref
}

func (c Cycle) String() string {
	s := ""
	for i, r := range c.Path {
		if i > 0 {
			s += " -> "
		}
		s += r.String()
	}
	return s
}

// DetectCycles scans edges of the given relationship type (or all types when
// nil) and reports every cycle found. Self-loops count as cycles of length
// one.
func (s *Store) DetectCycles(relType *RelationshipType) ([]Cycle, error) {
	var f Filter
	f.RelationshipType = relType
	edges, err := s.Query(f)
	if err != nil {
		return nil, err
	}

	adj := make(map[entity.Ref][]entity.Ref)
	for _, e := range edges {
		adj[e.From()] = append(adj[e.From()], e.To())
	}

	var cycles []Cycle
	done := mapset.NewSet[entity.Ref]()

	var walk func(node entity.Ref, stack []entity.Ref, onStack mapset.Set[entity.Ref])
	walk = func(node entity.Ref, stack []entity.Ref, onStack mapset.Set[entity.Ref]) {
		stack = append(stack, node)
		onStack.Add(node)
		for _, next := range adj[node] {
			if onStack.Contains(next) {
				// Slice the stack from the first occurrence of next.
				start := 0
				for i, r := range stack {
					if r == next {
						start = i
						break
					}
				}
				path := make([]entity.Ref, len(stack)-start)
				copy(path, stack[start:])
				cycles = append(cycles, Cycle{Path: path})
				continue
			}
			if done.Contains(next) {
				continue
			}
			walk(next, stack, onStack)
		}
		onStack.Remove(node)
		done.Add(node)
	}

	for from := range adj {
		if done.Contains(from) {
			continue
		}
		walk(from, nil, mapset.NewSet[entity.Ref]())
	}
	return cycles, nil
}
