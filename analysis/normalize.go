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

// Package analysis contains the rule normalizer, the six-stage rule
// validator, and the predicate dependency stratifier — everything a
// rule base must pass through before it can be evaluated.
package analysis

import (
	"strings"

	"github.com/pn2/ruleengine/ast"
)

// Normalize returns a value-equal copy of rule with defaults filled in:
// negated defaults to false per atom (guaranteed by the ast.Atom zero
// value, including for atoms built off the wire where the field was
// omitted, so atoms are copied as-is), Constraints and Assumptions default to empty
// slices rather than nil, and a provenance quote is trimmed of
// surrounding whitespace. Normalization is value-level only: it never
// alters predicate names, argument order, or any truth-affecting field.
func Normalize(rule ast.Rule) ast.Rule {
	out := rule
	out.Head = normalizeAtom(rule.Head)
	out.Body = make([]ast.Atom, len(rule.Body))
	for i, a := range rule.Body {
		out.Body[i] = normalizeAtom(a)
	}
	out.Constraints = append([]string{}, rule.Constraints...)
	out.Assumptions = append([]ast.ScopedAssumption{}, rule.Assumptions...)
	if rule.Provenance != nil {
		trimmed := *rule.Provenance
		trimmed.Quote = strings.TrimSpace(rule.Provenance.Quote)
		out.Provenance = &trimmed
	}
	return out
}

func normalizeAtom(a ast.Atom) ast.Atom {
	out := a
	out.Args = append([]ast.Term{}, a.Args...)
	return out
}
