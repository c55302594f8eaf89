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

// Package ast contains the data model shared by every other package in
// this module: terms, atoms, rules and condition definitions extracted
// from regulatory text, as pure (immutable) data.
package ast

import (
	"fmt"
	"regexp"
	"strings"
)

// varPattern matches the variable syntax: '?' followed by a letter and
// any number of letters, digits or underscores.
var varPattern = regexp.MustCompile(`^\?[A-Za-z][A-Za-z0-9_]*$`)

// predNamePattern matches valid predicate names.
var predNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// IsVariableSyntax reports whether raw has the shape of a variable token.
func IsVariableSyntax(raw string) bool {
	return varPattern.MatchString(raw)
}

// IsValidPredicateName reports whether name is a syntactically valid
// predicate name.
func IsValidPredicateName(name string) bool {
	return predNamePattern.MatchString(name)
}

// Term is the building block of rule bodies and heads: a variable or a
// constant. Unlike a full logic-programming term language, this system
// has no function symbols — every term is a string, and the sole
// distinguishing convention is the leading '?' on variables.
type Term interface {
	// isTerm is a marker method restricting implementations to this package.
	isTerm()

	// String returns the wire-format representation of this term.
	String() string

	// Equals reports syntactic equality.
	Equals(Term) bool
}

// Variable is a term that stands for an as-yet-unbound value.
type Variable struct {
	Symbol string
}

func (Variable) isTerm() {}

// String returns the variable's wire-format name, e.g. "?X".
func (v Variable) String() string { return v.Symbol }

// Equals reports whether u is the same variable.
func (v Variable) Equals(u Term) bool {
	o, ok := u.(Variable)
	return ok && o.Symbol == v.Symbol
}

// Constant is a ground term: anything that doesn't start with '?'.
type Constant struct {
	Symbol string
}

func (Constant) isTerm() {}

// String returns the constant's wire-format text.
func (c Constant) String() string { return c.Symbol }

// Equals reports whether u is the same constant.
func (c Constant) Equals(u Term) bool {
	o, ok := u.(Constant)
	return ok && o.Symbol == c.Symbol
}

// NewTerm classifies raw as a Variable or Constant based on its syntax.
func NewTerm(raw string) Term {
	if strings.HasPrefix(raw, "?") {
		return Variable{raw}
	}
	return Constant{raw}
}

// PredicateSym identifies a predicate by name and arity, e.g.
// "delivery_status/2". This is the canonical key used throughout the
// manifest, stratification, and fact store.
type PredicateSym struct {
	Name  string
	Arity int
}

// String renders the "name/arity" form used on the wire and in error
// messages.
func (p PredicateSym) String() string {
	return fmt.Sprintf("%s/%d", p.Name, p.Arity)
}

// Atom is a predicate symbol applied to an ordered tuple of terms, with
// an explicit NAF flag. Unlike the teacher's separate NegAtom wrapper,
// this system only ever negates body atoms, so the flag lives directly
// on Atom — one less type for callers to juggle.
type Atom struct {
	Predicate string
	Args      []Term
	Negated   bool
}

// Sym returns the predicate symbol (name + implicit arity) of this atom.
func (a Atom) Sym() PredicateSym {
	return PredicateSym{a.Predicate, len(a.Args)}
}

// String renders the atom, e.g. "not married(?X)".
func (a Atom) String() string {
	var sb strings.Builder
	if a.Negated {
		sb.WriteString("not ")
	}
	sb.WriteString(a.Predicate)
	sb.WriteByte('(')
	for i, arg := range a.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// IsGround reports whether every argument is a constant.
func (a Atom) IsGround() bool {
	for _, t := range a.Args {
		if _, ok := t.(Constant); !ok {
			return false
		}
	}
	return true
}

// Vars returns the variables appearing in this atom's arguments, in
// left-to-right order, without duplicates.
func (a Atom) Vars() []Variable {
	var vars []Variable
	seen := make(map[string]bool)
	for _, t := range a.Args {
		if v, ok := t.(Variable); ok && !seen[v.Symbol] {
			seen[v.Symbol] = true
			vars = append(vars, v)
		}
	}
	return vars
}

// AssumptionType enumerates the kinds of hidden premise a scoped
// assumption can record.
type AssumptionType string

// The assumption types named in spec.md §3.
const (
	DataContract        AssumptionType = "data_contract"
	DataSemantics       AssumptionType = "data_semantics"
	Enumeration         AssumptionType = "enumeration"
	ClosedWorld         AssumptionType = "closed_world"
	ExternalComputation AssumptionType = "external_computation"
	ConflictResolution  AssumptionType = "conflict_resolution"
	MissingPredicate    AssumptionType = "missing_predicate"
)

// AssumptionAbout pins a scoped assumption to a specific predicate, and
// optionally to a specific body atom, argument position and constant.
type AssumptionAbout struct {
	// Pred is "name/arity".
	Pred string
	// AtomIndex is 0-based into the rule's body; nil means unset.
	AtomIndex *int
	// ArgIndex is 1-based; nil means unset.
	ArgIndex *int
	// Const, when set, must match the referenced body argument when that
	// argument is itself a constant.
	Const *string
}

// ScopedAssumption is a typed, locally-attached note capturing a hidden
// premise required for a rule or condition to be sound.
type ScopedAssumption struct {
	About AssumptionAbout
	Type  AssumptionType
	Text  string
}

// Provenance references the document unit(s) and verbatim quote that
// justify a rule or condition.
type Provenance struct {
	Unit  []string
	Quote string
}

// Rule is a Horn rule: head <- body. An empty body makes it a fact.
type Rule struct {
	RuleID      string
	FragmentID  string
	Head        Atom
	Body        []Atom
	Constraints []string
	Provenance  *Provenance
	Assumptions []ScopedAssumption
	Notes       string
}

// IsFact reports whether this rule has an empty body.
func (r Rule) IsFact() bool { return len(r.Body) == 0 }

// Condition is a named, reusable bundle of facts an entity must (or may)
// satisfy, inlined into rule bodies via meets_condition/2.
type Condition struct {
	ID            string
	MeaningPL     string
	RequiredFacts []Atom
	OptionalFacts []Atom
	Provenance    *Provenance
	Assumptions   []ScopedAssumption
	Notes         string
}
