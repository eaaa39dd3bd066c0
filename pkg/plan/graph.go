// Package plan orders action lists by their depends edges and decides, per
// list, whether it runs or is skipped.
package plan

import (
	"sort"
)

// Node is one action list as the evaluator sees it.
type Node struct {
	Name        string
	Depends     []string
	RunOnChange []string // repository-relative or component-relative paths gating the list
	Steps       []string // opaque to the evaluator
}

// Graph is a validated set of action lists. Depends edges may still form
// cycles; those are reported when the cycle is part of a requested closure.
type Graph struct {
	nodes  []*Node
	byName map[string]*Node
	index  map[string]int // declaration order
}

// NewGraph validates nodes in declaration order: names must be non-empty and
// unique, and every depends target must exist.
func NewGraph(nodes []Node) (*Graph, error) {
	g := &Graph{
		byName: make(map[string]*Node, len(nodes)),
		index:  make(map[string]int, len(nodes)),
	}
	for i := range nodes {
		n := nodes[i]
		if n.Name == "" {
			return nil, invalidf("action list name is required")
		}
		if _, exists := g.byName[n.Name]; exists {
			return nil, invalidf("duplicate action list %q", n.Name)
		}
		g.byName[n.Name] = &n
		g.index[n.Name] = i
		g.nodes = append(g.nodes, &n)
	}
	for _, n := range g.nodes {
		for _, dep := range n.Depends {
			if _, ok := g.byName[dep]; !ok {
				return nil, unknownf("%q depends on %q", n.Name, dep)
			}
		}
	}
	return g, nil
}

// Node returns a node by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Names returns every action list name in declaration order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		names = append(names, n.Name)
	}
	return names
}

// Order returns the dependency closure of roots, dependencies first. Nodes that
// become ready at the same time keep declaration order.
func (g *Graph) Order(roots []string) ([]*Node, error) {
	closure := make(map[string]bool)
	stack := make([]string, 0, len(roots))
	for _, r := range roots {
		if _, ok := g.byName[r]; !ok {
			return nil, unknownf("%q", r)
		}
		stack = append(stack, r)
	}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if closure[name] {
			continue
		}
		closure[name] = true
		stack = append(stack, g.byName[name].Depends...)
	}

	pending := make(map[string]int, len(closure))
	dependents := make(map[string][]string, len(closure))
	for name := range closure {
		deps := unique(g.byName[name].Depends)
		pending[name] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], name)
		}
	}

	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	g.sortByDeclaration(ready)

	order := make([]*Node, 0, len(closure))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, g.byName[name])
		delete(pending, name)
		for _, dep := range dependents[name] {
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		g.sortByDeclaration(ready)
	}

	if len(pending) > 0 {
		return nil, &CycleError{Path: g.findCycle(pending)}
	}
	return order, nil
}

// findCycle walks depends edges among the nodes left over by the topological
// sort. Every leftover node has a leftover dependency, so the walk repeats.
func (g *Graph) findCycle(left map[string]int) []string {
	names := make([]string, 0, len(left))
	for name := range left {
		names = append(names, name)
	}
	g.sortByDeclaration(names)

	pos := make(map[string]int)
	var path []string
	cur := names[0]
	for {
		if i, seen := pos[cur]; seen {
			return append(path[i:], cur)
		}
		pos[cur] = len(path)
		path = append(path, cur)
		next := ""
		for _, d := range g.byName[cur].Depends {
			if _, ok := left[d]; ok {
				next = d
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}

func (g *Graph) sortByDeclaration(names []string) {
	sort.Slice(names, func(i, j int) bool { return g.index[names[i]] < g.index[names[j]] })
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
