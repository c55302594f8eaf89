// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package factstore contains the interface and a simple implementation for
// access to facts (atoms that are ground, i.e. contain no variables).
package factstore

import (
	"strings"

	"github.com/pn2/ruleengine/ast"
)

// ReadOnlyFactStore provides read access to a set of facts.
type ReadOnlyFactStore interface {
	// GetFacts streams facts matching predicate sym to fn. Scanning stops
	// early if fn returns an error, which GetFacts then returns.
	GetFacts(ast.PredicateSym, func(ast.Atom) error) error

	// Contains reports whether the given ground atom is already present.
	Contains(ast.Atom) bool

	// ListPredicates lists predicates with at least one fact in the store.
	ListPredicates() []ast.PredicateSym

	// EstimateFactCount returns the number of facts in the store.
	EstimateFactCount() int
}

// FactStore provides read/write access to a set of facts. Facts accumulate
// monotonically: a FactStore is never asked to retract a fact, matching the
// append-only nature of stratified bottom-up evaluation.
type FactStore interface {
	ReadOnlyFactStore

	// Add adds a ground atom and reports whether it was new.
	Add(ast.Atom) bool

	// Merge adds every fact from src.
	Merge(ReadOnlyFactStore)
}

// key renders an atom's argument tuple as a map key. Args are required to be
// ast.Constant by the time they reach a FactStore — see ast.Atom.IsGround.
func key(args []ast.Term) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte('\x1f') // unit separator: not a legal char in predicate args.
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

// SimpleInMemoryStore is a FactStore backed by a two-level map: predicate
// symbol to argument-tuple key to atom.
type SimpleInMemoryStore struct {
	shards map[ast.PredicateSym]map[string]ast.Atom
}

// NewSimpleInMemoryStore constructs an empty store.
func NewSimpleInMemoryStore() *SimpleInMemoryStore {
	return &SimpleInMemoryStore{shards: make(map[ast.PredicateSym]map[string]ast.Atom)}
}

// Add implements FactStore.
func (s *SimpleInMemoryStore) Add(a ast.Atom) bool {
	sym := a.Sym()
	shard, ok := s.shards[sym]
	if !ok {
		shard = make(map[string]ast.Atom)
		s.shards[sym] = shard
	}
	k := key(a.Args)
	if _, exists := shard[k]; exists {
		return false
	}
	shard[k] = a
	return true
}

// Merge implements FactStore.
func (s *SimpleInMemoryStore) Merge(src ReadOnlyFactStore) {
	for _, sym := range src.ListPredicates() {
		src.GetFacts(sym, func(a ast.Atom) error {
			s.Add(a)
			return nil
		})
	}
}

// GetFacts implements ReadOnlyFactStore.
func (s *SimpleInMemoryStore) GetFacts(sym ast.PredicateSym, fn func(ast.Atom) error) error {
	for _, fact := range s.shards[sym] {
		if err := fn(fact); err != nil {
			return err
		}
	}
	return nil
}

// Contains implements ReadOnlyFactStore.
func (s *SimpleInMemoryStore) Contains(a ast.Atom) bool {
	shard, ok := s.shards[a.Sym()]
	if !ok {
		return false
	}
	_, ok = shard[key(a.Args)]
	return ok
}

// ListPredicates implements ReadOnlyFactStore.
func (s *SimpleInMemoryStore) ListPredicates() []ast.PredicateSym {
	preds := make([]ast.PredicateSym, 0, len(s.shards))
	for sym, shard := range s.shards {
		if len(shard) > 0 {
			preds = append(preds, sym)
		}
	}
	return preds
}

// EstimateFactCount implements ReadOnlyFactStore.
func (s *SimpleInMemoryStore) EstimateFactCount() int {
	n := 0
	for _, shard := range s.shards {
		n += len(shard)
	}
	return n
}

// String renders a debug view of the store's contents, one fact per line.
func (s *SimpleInMemoryStore) String() string {
	var sb strings.Builder
	for _, shard := range s.shards {
		for _, a := range shard {
			sb.WriteString(a.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
