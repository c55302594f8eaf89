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

package condition

import (
	"testing"

	"github.com/pn2/ruleengine/ast"
)

func varTerm(s string) ast.Term { return ast.Variable{Symbol: s} }
func constTerm(s string) ast.Term { return ast.Constant{Symbol: s} }

func TestExpandRulesSubstitutesEntityAndFreshens(t *testing.T) {
	cond := ast.Condition{
		ID: "adult_resident",
		RequiredFacts: []ast.Atom{
			{Predicate: "age", Args: []ast.Term{varTerm("?P"), varTerm("?Age")}},
			{Predicate: "ge", Args: []ast.Term{varTerm("?Age"), constTerm("18")}},
		},
	}
	r := ast.Rule{
		Head: ast.Atom{Predicate: "eligible", Args: []ast.Term{varTerm("?X")}},
		Body: []ast.Atom{
			{Predicate: "meets_condition", Args: []ast.Term{varTerm("?X"), constTerm("adult_resident")}},
		},
	}

	expander := NewExpander([]ast.Condition{cond})
	out := expander.ExpandRules([]ast.Rule{r})
	if len(out) != 1 {
		t.Fatalf("ExpandRules returned %d rules, want 1", len(out))
	}
	body := out[0].Body
	if len(body) != 2 {
		t.Fatalf("expanded body has %d atoms, want 2: %v", len(body), body)
	}
	if body[0].Predicate != "age" || !body[0].Args[0].Equals(varTerm("?X")) {
		t.Errorf("age atom = %v, want entity var substituted with ?X", body[0])
	}
	ageVar, ok := body[0].Args[1].(ast.Variable)
	if !ok || ageVar.Symbol != "?Age_mc1" {
		t.Errorf("non-entity variable not freshened: got %v, want ?Age_mc1", body[0].Args[1])
	}
	geVar, ok := body[1].Args[0].(ast.Variable)
	if !ok || geVar.Symbol != "?Age_mc1" {
		t.Errorf("freshened variable must match across atoms of the same expansion: got %v", body[1].Args[0])
	}
}

func TestExpandRulesFreshensIndependentlyPerCall(t *testing.T) {
	cond := ast.Condition{
		ID: "has_email",
		RequiredFacts: []ast.Atom{
			{Predicate: "email", Args: []ast.Term{varTerm("?P"), varTerm("?E")}},
		},
	}
	mkRule := func(entity string) ast.Rule {
		return ast.Rule{
			Head: ast.Atom{Predicate: "contactable", Args: []ast.Term{varTerm(entity)}},
			Body: []ast.Atom{
				{Predicate: "meets_condition", Args: []ast.Term{varTerm(entity), constTerm("has_email")}},
			},
		}
	}
	expander := NewExpander([]ast.Condition{cond})
	out := expander.ExpandRules([]ast.Rule{mkRule("?A"), mkRule("?B")})

	e1 := out[0].Body[0].Args[1].(ast.Variable).Symbol
	e2 := out[1].Body[0].Args[1].(ast.Variable).Symbol
	if e1 == e2 {
		t.Errorf("two expansions of the same condition must get distinct freshened variables, both got %q", e1)
	}
}

func TestExpandRulesLeavesUnknownConditionUntouched(t *testing.T) {
	r := ast.Rule{
		Head: ast.Atom{Predicate: "eligible", Args: []ast.Term{varTerm("?X")}},
		Body: []ast.Atom{
			{Predicate: "meets_condition", Args: []ast.Term{varTerm("?X"), constTerm("unknown_cond")}},
		},
	}
	expander := NewExpander(nil)
	out := expander.ExpandRules([]ast.Rule{r})
	if len(out[0].Body) != 1 || out[0].Body[0].Predicate != "meets_condition" {
		t.Errorf("unknown condition reference should be left as-is, got %v", out[0].Body)
	}
}
