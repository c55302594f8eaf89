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

package unionfind

import (
	"testing"

	"github.com/pn2/ruleengine/ast"
)

func v(s string) ast.Term { return ast.Variable{Symbol: s} }
func c(s string) ast.Term { return ast.Constant{Symbol: s} }

func TestUnifyTermsGroundsVariable(t *testing.T) {
	uf, ok := UnifyTerms([]ast.Term{v("?X"), v("?Y")}, []ast.Term{c("alice"), c("bob")})
	if !ok {
		t.Fatalf("UnifyTerms() failed, want success")
	}
	if got := uf.Get(v("?X")); !got.Equals(c("alice")) {
		t.Errorf("Get(?X) = %v, want alice", got)
	}
	if got := uf.Get(v("?Y")); !got.Equals(c("bob")) {
		t.Errorf("Get(?Y) = %v, want bob", got)
	}
}

func TestUnifyTermsRejectsConstantClash(t *testing.T) {
	if _, ok := UnifyTerms([]ast.Term{c("alice")}, []ast.Term{c("bob")}); ok {
		t.Fatalf("UnifyTerms() should fail on constant/constant clash")
	}
}

func TestUnifyTermsRejectsLengthMismatch(t *testing.T) {
	if _, ok := UnifyTerms([]ast.Term{v("?X")}, []ast.Term{c("a"), c("b")}); ok {
		t.Fatalf("UnifyTerms() should fail on length mismatch")
	}
}

func TestUnifyTermsExtendCarriesPriorBindings(t *testing.T) {
	base, ok := UnifyTerms([]ast.Term{v("?X")}, []ast.Term{c("alice")})
	if !ok {
		t.Fatalf("base unification failed")
	}
	// A second atom reusing ?X must see it already bound to "alice", and
	// unifying it against a different constant must fail.
	if _, ok := UnifyTermsExtend([]ast.Term{v("?X")}, []ast.Term{c("bob")}, base); ok {
		t.Fatalf("UnifyTermsExtend() should fail: ?X is already bound to alice")
	}
	extended, ok := UnifyTermsExtend([]ast.Term{v("?X"), v("?Y")}, []ast.Term{c("alice"), c("carol")}, base)
	if !ok {
		t.Fatalf("UnifyTermsExtend() failed, want success")
	}
	if got := extended.Get(v("?Y")); !got.Equals(c("carol")) {
		t.Errorf("Get(?Y) = %v, want carol", got)
	}
}

func TestGetOfUnboundVariableReturnsItself(t *testing.T) {
	uf := New()
	if got := uf.Get(v("?Z")); !got.Equals(v("?Z")) {
		t.Errorf("Get(?Z) = %v, want ?Z unchanged", got)
	}
}
