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

package goalparser

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pn2/ruleengine/ast"
)

func TestParseWithVariableArgs(t *testing.T) {
	got, err := Parse("eligible_bidder(?P, ?O)")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := ast.Atom{
		Predicate: "eligible_bidder",
		Args:      []ast.Term{ast.Variable{Symbol: "?P"}, ast.Variable{Symbol: "?O"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseZeroArity(t *testing.T) {
	got, err := Parse("is_valid")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.Predicate != "is_valid" || len(got.Args) != 0 {
		t.Errorf("Parse(is_valid) = %+v, want zero-arg atom", got)
	}
}

func TestParseQuotedConstant(t *testing.T) {
	got, err := Parse(`status("open")`)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := ast.Atom{Predicate: "status", Args: []ast.Term{ast.Constant{Symbol: "open"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInvalidSyntax(t *testing.T) {
	if _, err := Parse("123bad(?X"); err == nil {
		t.Fatalf("Parse() should reject malformed goal syntax")
	}
}
