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

// Package store defines the persistence contract this module consumes —
// rules, conditions, the predicate manifest, and per-case EDB facts — and
// provides the one concrete, dependency-free collaborator in scope: a
// file-based loader for a case's extensional facts. The concrete rule and
// condition backing stores are an external collaborator (spec.md §1 Non-
// goals) and are represented here only as interfaces for callers to supply.
package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pn2/ruleengine/ast"
	"github.com/pn2/ruleengine/manifest"
)

// RuleSource loads Horn rules, split the way the originating system keeps
// them: rules curated directly by a domain author ("the manifest"), and
// rules an extractor discovered automatically from source documents.
// Implementations should filter by domain and, when non-empty,
// fragmentID. UpsertRules ingests rules keyed by (fragment_id, rule_id):
// re-upserting the same key replaces the prior rule rather than
// duplicating it, so callers may safely retry a failed ingest.
type RuleSource interface {
	LoadRules(domain, fragmentID string) ([]ast.Rule, error)
	LoadDerivedRules(domain, fragmentID string) ([]ast.Rule, error)
	UpsertRules(rules []ast.Rule) error
}

// ConditionSource loads the named condition bundles meets_condition/2
// inlines. UpsertConditions ingests conditions keyed by id.
type ConditionSource interface {
	LoadConditions() ([]ast.Condition, error)
	UpsertConditions(conditions []ast.Condition) error
}

// ManifestSource loads the predicate catalog rules are validated against.
// UpsertPredicateSpecs ingests predicate specs keyed by name.
type ManifestSource interface {
	LoadManifest() (*manifest.Index, error)
	UpsertPredicateSpecs(specs []manifest.PredSpec) error
}

// LoadEDBFacts reads a case's extensional database from a JSON file in the
// wire format of ast.EDBFactsJSON (spec.md §6).
func LoadEDBFacts(path string) (caseID, domain string, facts []ast.Atom, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("store: reading %s: %w", path, err)
	}
	var wire ast.EDBFactsJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return "", "", nil, fmt.Errorf("store: parsing %s: %w", path, err)
	}
	facts = make([]ast.Atom, len(wire.Facts))
	for i, f := range wire.Facts {
		args := make([]ast.Term, len(f.Args))
		for j, a := range f.Args {
			args[j] = ast.Constant{Symbol: a}
		}
		facts[i] = ast.Atom{Predicate: f.Pred, Args: args}
	}
	return wire.CaseID, wire.Domain, facts, nil
}
