// Package resolver locates user handlers for contract operations by name.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/stoewer/go-strcase"
)

// Namespace is an explicit registration table of named handlers. Nested namespaces let dotted
// operation identifiers such as "pets.listPets" resolve to handlers grouped by area.
type Namespace[H any] struct {
	name     string
	parent   *Namespace[H]
	handlers map[string]H
	children map[string]*Namespace[H]
}

// NewNamespace creates an empty root namespace.
func NewNamespace[H any](name string) *Namespace[H] {
	return &Namespace[H]{
		name:     name,
		handlers: make(map[string]H),
		children: make(map[string]*Namespace[H]),
	}
}

// Handle registers h under name, replacing any earlier registration, and returns the namespace
// so registrations can be chained.
func (n *Namespace[H]) Handle(name string, h H) *Namespace[H] {
	n.handlers[name] = h
	return n
}

// Child returns the nested namespace with the given name, creating it when absent.
func (n *Namespace[H]) Child(name string) *Namespace[H] {
	if child, ok := n.children[name]; ok {
		return child
	}
	child := NewNamespace[H](name)
	child.parent = n
	n.children[name] = child
	return child
}

// Lookup returns the handler registered directly in this namespace.
func (n *Namespace[H]) Lookup(name string) (H, bool) {
	h, ok := n.handlers[name]
	return h, ok
}

// Names returns the handler names registered directly in this namespace, sorted.
func (n *Namespace[H]) Names() []string {
	names := make([]string, 0, len(n.handlers))
	for name := range n.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Path is the dotted path of the namespace from its root.
func (n *Namespace[H]) Path() string {
	if n.parent == nil {
		return n.name
	}
	parentPath := n.parent.Path()
	if parentPath == "" {
		return n.name
	}
	return parentPath + "." + n.name
}

func (n *Namespace[H]) qualify(name string) string {
	if p := n.Path(); p != "" {
		return p + "." + name
	}
	return name
}

// FoldCase converts an identifier to the snake_case form used for handler names, so that
// "dummyTestEndpoint" matches a handler registered as "dummy_test_endpoint".
func FoldCase(s string) string {
	return strcase.SnakeCase(s)
}

// Split separates an operation identifier into the namespace path and the final name. The split
// happens at the last dot only.
func Split(id string) ([]string, string) {
	idx := strings.LastIndex(id, ".")
	if idx < 0 {
		return nil, id
	}
	return strings.Split(id[:idx], "."), id[idx+1:]
}

// Resolve finds a handler for every identifier. Identifiers are processed in sorted order and
// the first failure is returned.
func Resolve[H any](root *Namespace[H], ids []string, fold bool) (map[string]H, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	resolved := make(map[string]H, len(sorted))
	for _, id := range sorted {
		h, err := ResolveOne(root, id, fold)
		if err != nil {
			return nil, err
		}
		resolved[id] = h
	}
	return resolved, nil
}

// ResolveOne finds the handler for a single identifier. With folding on the snake_case name is
// tried before the verbatim one.
func ResolveOne[H any](root *Namespace[H], id string, fold bool) (H, error) {
	var zero H
	if root == nil {
		return zero, &shimerr.ResolutionError{OperationID: id, Reason: "no handler namespace was provided"}
	}

	segments, name := Split(id)
	ns := root
	for _, segment := range segments {
		child, ok := ns.children[segment]
		if !ok {
			return zero, &shimerr.ResolutionError{
				OperationID: id,
				Reason:      fmt.Sprintf("namespace `%s` does not exist", ns.qualify(segment)),
			}
		}
		ns = child
	}

	candidates := []string{name}
	if fold {
		// the snake_case handler wins when a namespace holds both spellings
		candidates = []string{FoldCase(name), name}
	}
	for _, candidate := range candidates {
		if h, ok := ns.Lookup(candidate); ok {
			logger.Tracef("resolved operation %s to handler %s", id, ns.qualify(candidate))
			return h, nil
		}
	}
	target := candidates[0]
	return zero, &shimerr.ResolutionError{OperationID: id, Target: ns.qualify(target)}
}
