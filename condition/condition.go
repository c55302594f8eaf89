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

// Package condition expands meets_condition/2 atoms in rule bodies into
// the required_facts of the referenced condition, substituting the
// caller's entity argument for the condition's own entity variable.
package condition

import (
	"fmt"

	"github.com/pn2/ruleengine/ast"
)

const meetsConditionPred = "meets_condition"

// Expander inlines meets_condition/2 atoms against a fixed table of named
// conditions. A fresh Expander should be used per evaluation run: its
// internal counter guarantees that two calls expanding the same condition
// never collide on a renamed variable.
type Expander struct {
	conditions map[string]ast.Condition
	counter    int
}

// NewExpander builds an Expander over the given conditions, keyed by
// condition ID.
func NewExpander(conditions []ast.Condition) *Expander {
	byID := make(map[string]ast.Condition, len(conditions))
	for _, c := range conditions {
		byID[c.ID] = c
	}
	return &Expander{conditions: byID}
}

// ExpandRules returns a copy of rules with every meets_condition/2 body
// atom replaced by the referenced condition's required_facts. A reference
// to an unknown condition ID is left untouched — the evaluator then finds
// no meets_condition facts for it, so that body matches nothing, rather
// than the expander silently dropping a rule.
func (e *Expander) ExpandRules(rules []ast.Rule) []ast.Rule {
	out := make([]ast.Rule, len(rules))
	for i, r := range rules {
		out[i] = e.expandRule(r)
	}
	return out
}

func (e *Expander) expandRule(r ast.Rule) ast.Rule {
	var newBody []ast.Atom
	for _, atom := range r.Body {
		if atom.Predicate != meetsConditionPred || len(atom.Args) != 2 {
			newBody = append(newBody, atom)
			continue
		}
		entityArg := atom.Args[0]
		condID, ok := atom.Args[1].(ast.Constant)
		if !ok {
			newBody = append(newBody, atom)
			continue
		}
		cond, ok := e.conditions[condID.Symbol]
		if !ok {
			newBody = append(newBody, atom)
			continue
		}
		entityVar := firstVar(cond.RequiredFacts)
		e.counter++
		if entityVar != nil {
			newBody = append(newBody, freshen(cond.RequiredFacts, *entityVar, entityArg, e.counter)...)
		} else {
			newBody = append(newBody, cond.RequiredFacts...)
		}
	}
	out := r
	out.Body = newBody
	return out
}

// firstVar returns the first variable appearing, left to right, across
// atoms — used to identify a condition's entity variable by convention
// (the condition's required_facts are written with the entity as the
// first variable encountered).
func firstVar(atoms []ast.Atom) *ast.Variable {
	for _, a := range atoms {
		for _, arg := range a.Args {
			if v, ok := arg.(ast.Variable); ok {
				return &v
			}
		}
	}
	return nil
}

// freshen substitutes entityVar with replacement across atoms, and renames
// every other variable to a call-local name so that two expansions of the
// same condition never share a variable.
func freshen(atoms []ast.Atom, entityVar ast.Variable, replacement ast.Term, counter int) []ast.Atom {
	out := make([]ast.Atom, len(atoms))
	for i, a := range atoms {
		args := make([]ast.Term, len(a.Args))
		for j, arg := range a.Args {
			v, ok := arg.(ast.Variable)
			switch {
			case !ok:
				args[j] = arg
			case v.Symbol == entityVar.Symbol:
				args[j] = replacement
			default:
				args[j] = ast.Variable{Symbol: fmt.Sprintf("%s_mc%d", v.Symbol, counter)}
			}
		}
		out[i] = ast.Atom{Predicate: a.Predicate, Args: args, Negated: a.Negated}
	}
	return out
}
