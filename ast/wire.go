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

package ast

import "encoding/json"

// This file holds the JSON wire shapes exchanged with the extractor and
// persistence collaborators named in spec.md §6, and the conversions
// between them and the pure data model above. The wire structs use
// plain strings for term arguments — classification into Variable vs
// Constant happens at the boundary, via NewTerm.

// AtomJSON is the wire shape of an atom.
type AtomJSON struct {
	Pred    string   `json:"pred"`
	Args    []string `json:"args"`
	Negated bool     `json:"negated,omitempty"`
}

// ToAtom converts a wire atom into the internal representation.
func (a AtomJSON) ToAtom() Atom {
	args := make([]Term, len(a.Args))
	for i, raw := range a.Args {
		args[i] = NewTerm(raw)
	}
	return Atom{Predicate: a.Pred, Args: args, Negated: a.Negated}
}

// FromAtom converts an internal atom into its wire shape.
func FromAtom(a Atom) AtomJSON {
	args := make([]string, len(a.Args))
	for i, t := range a.Args {
		args[i] = t.String()
	}
	return AtomJSON{Pred: a.Predicate, Args: args, Negated: a.Negated}
}

// AssumptionAboutJSON is the wire shape of AssumptionAbout.
type AssumptionAboutJSON struct {
	Pred      string  `json:"pred"`
	AtomIndex *int    `json:"atom_index,omitempty"`
	ArgIndex  *int    `json:"arg_index,omitempty"`
	Const     *string `json:"const,omitempty"`
}

// ScopedAssumptionJSON is the wire shape of a scoped assumption.
type ScopedAssumptionJSON struct {
	About AssumptionAboutJSON `json:"about"`
	Type  string               `json:"type"`
	Text  string               `json:"text"`
}

// ToAssumption converts a wire assumption into the internal representation.
func (s ScopedAssumptionJSON) ToAssumption() ScopedAssumption {
	return ScopedAssumption{
		About: AssumptionAbout{
			Pred:      s.About.Pred,
			AtomIndex: s.About.AtomIndex,
			ArgIndex:  s.About.ArgIndex,
			Const:     s.About.Const,
		},
		Type: AssumptionType(s.Type),
		Text: s.Text,
	}
}

// ProvenanceJSON is the wire shape of a Provenance block.
type ProvenanceJSON struct {
	Unit  []string `json:"unit"`
	Quote string   `json:"quote"`
}

// ToProvenance converts a wire provenance block into the internal
// representation, returning nil when the block is absent (a nil pointer).
// A present but empty block converts to a non-nil, empty Provenance.
func (p *ProvenanceJSON) ToProvenance() *Provenance {
	if p == nil {
		return nil
	}
	return &Provenance{Unit: p.Unit, Quote: p.Quote}
}

// RuleJSON is the wire shape of a rule, as exchanged with persistence
// and the extractor (spec.md §6).
type RuleJSON struct {
	ID          string                 `json:"id"`
	FragmentID  string                 `json:"fragment_id,omitempty"`
	Head        AtomJSON               `json:"head"`
	Body        []AtomJSON             `json:"body"`
	Constraints []string               `json:"constraints,omitempty"`
	Provenance  *ProvenanceJSON        `json:"provenance,omitempty"`
	Assumptions []ScopedAssumptionJSON `json:"assumptions,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
}

// ToRule converts a wire rule into the internal representation. It does
// not normalize defaults — see package analysis for that.
func (r RuleJSON) ToRule() Rule {
	body := make([]Atom, len(r.Body))
	for i, a := range r.Body {
		body[i] = a.ToAtom()
	}
	assumptions := make([]ScopedAssumption, len(r.Assumptions))
	for i, a := range r.Assumptions {
		assumptions[i] = a.ToAssumption()
	}
	return Rule{
		RuleID:      r.ID,
		FragmentID:  r.FragmentID,
		Head:        r.Head.ToAtom(),
		Body:        body,
		Constraints: r.Constraints,
		Provenance:  r.Provenance.ToProvenance(),
		Assumptions: assumptions,
		Notes:       r.Notes,
	}
}

// ParseRuleJSON decodes a single rule from its JSON wire form.
func ParseRuleJSON(data []byte) (RuleJSON, error) {
	var r RuleJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return RuleJSON{}, err
	}
	return r, nil
}

// ConditionJSON is the wire shape of a condition definition.
type ConditionJSON struct {
	ID            string                 `json:"id"`
	MeaningPL     string                 `json:"meaning_pl,omitempty"`
	RequiredFacts []AtomJSON             `json:"required_facts"`
	OptionalFacts []AtomJSON             `json:"optional_facts,omitempty"`
	Provenance    *ProvenanceJSON        `json:"provenance,omitempty"`
	Assumptions   []ScopedAssumptionJSON `json:"assumptions,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
}

// ToCondition converts a wire condition into the internal representation.
func (c ConditionJSON) ToCondition() Condition {
	req := make([]Atom, len(c.RequiredFacts))
	for i, a := range c.RequiredFacts {
		req[i] = a.ToAtom()
	}
	opt := make([]Atom, len(c.OptionalFacts))
	for i, a := range c.OptionalFacts {
		opt[i] = a.ToAtom()
	}
	assumptions := make([]ScopedAssumption, len(c.Assumptions))
	for i, a := range c.Assumptions {
		assumptions[i] = a.ToAssumption()
	}
	return Condition{
		ID:            c.ID,
		MeaningPL:     c.MeaningPL,
		RequiredFacts: req,
		OptionalFacts: opt,
		Provenance:    c.Provenance.ToProvenance(),
		Assumptions:   assumptions,
		Notes:         c.Notes,
	}
}

// FactJSON is the wire shape of a single ground EDB fact.
type FactJSON struct {
	Pred string   `json:"pred"`
	Args []string `json:"args"`
}

// EDBFactsJSON is the wire shape of a case's extensional database, per
// spec.md §6.
type EDBFactsJSON struct {
	CaseID string     `json:"case_id"`
	Domain string     `json:"domain"`
	Facts  []FactJSON `json:"facts"`
}
