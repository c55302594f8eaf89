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

package analysis

import (
	"testing"

	"github.com/pn2/ruleengine/ast"
)

func TestNormalizeFillsNilSlicesAndTrimsQuote(t *testing.T) {
	r := ast.Rule{
		Head: ast.Atom{Predicate: "eligible", Args: []ast.Term{ast.Variable{Symbol: "?X"}}},
		Provenance: &ast.Provenance{
			Unit:  []string{"§3"},
			Quote: "  must be an adult  ",
		},
	}
	out := Normalize(r)
	if out.Constraints == nil {
		t.Errorf("Constraints should default to an empty slice, not nil")
	}
	if out.Assumptions == nil {
		t.Errorf("Assumptions should default to an empty slice, not nil")
	}
	if out.Provenance.Quote != "must be an adult" {
		t.Errorf("Provenance.Quote = %q, want trimmed", out.Provenance.Quote)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	r := ast.Rule{
		Head: ast.Atom{Predicate: "eligible", Args: []ast.Term{ast.Variable{Symbol: "?X"}}},
		Body: []ast.Atom{{Predicate: "applicant", Args: []ast.Term{ast.Variable{Symbol: "?X"}}}},
	}
	once := Normalize(r)
	twice := Normalize(once)
	if once.Head.Predicate != twice.Head.Predicate || len(once.Body) != len(twice.Body) {
		t.Errorf("Normalize should be idempotent: once=%+v twice=%+v", once, twice)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	r := ast.Rule{
		Head: ast.Atom{Predicate: "eligible", Args: []ast.Term{ast.Variable{Symbol: "?X"}}},
		Body: []ast.Atom{{Predicate: "applicant", Args: []ast.Term{ast.Variable{Symbol: "?X"}}}},
	}
	out := Normalize(r)
	out.Body[0].Args[0] = ast.Constant{Symbol: "mutated"}
	if _, ok := r.Body[0].Args[0].(ast.Variable); !ok {
		t.Errorf("Normalize must copy argument slices; mutating the output changed the input")
	}
}
