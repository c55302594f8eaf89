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

// Package manifest loads and indexes the predicate catalog a rule base
// is validated against: the whitelist of known predicates, their
// arity, argument roles, and value domains.
package manifest

import (
	"encoding/json"
	"fmt"

	"bitbucket.org/creachadair/stringset"

	"github.com/pn2/ruleengine/ast"
	"github.com/pn2/ruleengine/builtin"
)

// WhitelistMode governs how stage B of the validator treats predicates
// absent from the manifest.
type WhitelistMode string

const (
	// AllowOnlyListed rejects any predicate not present in the manifest.
	AllowOnlyListed WhitelistMode = "allow_only_listed"
	// AllowUnlisted admits unknown predicates without an arity or
	// allowed_in check, per spec.md §9's open question: the declared
	// meaning is implemented, even though the original source never
	// exercises this mode.
	AllowUnlisted WhitelistMode = "allow_unlisted"
)

// IORole classifies how a predicate's facts come to exist.
type IORole string

// The IO roles named in spec.md §3.
const (
	IOInput   IORole = "input"
	IODerived IORole = "derived"
	IOBoth    IORole = "both"
)

// Kind classifies the purpose a predicate serves in the rule base.
type Kind string

// The predicate kinds named in spec.md §3.
const (
	KindDomain    Kind = "domain"
	KindCondition Kind = "condition"
	KindDecision  Kind = "decision"
	KindUI        Kind = "ui"
	KindAudit     Kind = "audit"
	KindBuiltin   Kind = "builtin"
)

// AllowedIn records, for one predicate, the rule positions it may
// appear in.
type AllowedIn struct {
	Head        bool
	Body        bool
	NegatedBody bool
}

// defaultAllowedIn returns the default AllowedIn for a predicate
// without an explicit allowed_in block, keyed by IO role (spec.md §4.1).
func defaultAllowedIn(io IORole) AllowedIn {
	switch io {
	case IOInput:
		return AllowedIn{Head: false, Body: true, NegatedBody: false}
	case IODerived:
		return AllowedIn{Head: true, Body: true, NegatedBody: false}
	default: // IOBoth and any unrecognized role default to the permissive case.
		return AllowedIn{Head: true, Body: true, NegatedBody: true}
	}
}

// ValueDomain restricts one argument position to an enumerated set of
// constants.
type ValueDomain struct {
	// EnumArgIndex is 1-based.
	EnumArgIndex  int
	AllowedValues stringset.Set
}

// PredEntry is the manifest's flattened, lookup-ready view of one
// predicate spec.
type PredEntry struct {
	Name        string
	Arity       int
	Pred        string // "name/arity"
	Signature   []string
	IO          IORole
	Kind        Kind
	MeaningPL   string
	AllowedIn   AllowedIn
	ValueDomain *ValueDomain // nil when the predicate has no enum constraint.
}

func (e PredEntry) sym() ast.PredicateSym { return ast.PredicateSym{Name: e.Name, Arity: e.Arity} }

// Policy is the manifest's whitelist and closed-world configuration.
type Policy struct {
	WhitelistMode            WhitelistMode
	NAFClosedWorldPredicates stringset.Set // keyed by "name/arity"
}

// Index is the immutable, queryable form of a predicate manifest.
// Construction loads the catalog once; all lookup methods are
// read-only and safe to call concurrently from multiple evaluators.
type Index struct {
	policy Policy
	byName map[string]PredEntry
	byPred map[string]PredEntry
}

// New builds an Index from a decoded manifest. The six comparison
// built-ins (ge/gt/le/lt/eq/ne) are registered as kind="builtin"
// entries before the manifest's own predicates are loaded, so a
// manifest author may still override their allowed_in or signature by
// listing them explicitly — an explicit entry always wins.
func New(m Manifest) *Index {
	idx := &Index{
		policy: Policy{
			WhitelistMode:            m.Policy.WhitelistModeOrDefault(),
			NAFClosedWorldPredicates: stringset.New(m.Policy.NAFClosedWorldPredicates...),
		},
		byName: make(map[string]PredEntry, len(m.Predicates)+len(builtin.Predicates)),
		byPred: make(map[string]PredEntry, len(m.Predicates)+len(builtin.Predicates)),
	}
	for sym := range builtin.Predicates {
		entry := builtinEntry(sym)
		idx.byName[entry.Name] = entry
		idx.byPred[entry.Pred] = entry
	}
	for _, p := range m.Predicates {
		entry := buildEntry(p)
		idx.byName[entry.Name] = entry
		idx.byPred[entry.Pred] = entry
	}
	return idx
}

// builtinEntry is the default manifest entry for a comparison built-in:
// never a rule head, allowed in a positive or negated body position
// (the engine evaluates NAF on built-ins directly, with no closed-world
// assumption needed — see builtin.Decide), and no value domain.
func builtinEntry(sym ast.PredicateSym) PredEntry {
	return PredEntry{
		Name:      sym.Name,
		Arity:     sym.Arity,
		Pred:      sym.String(),
		IO:        IOBoth,
		Kind:      KindBuiltin,
		AllowedIn: AllowedIn{Head: false, Body: true, NegatedBody: true},
	}
}

func buildEntry(p PredSpec) PredEntry {
	pred := p.Pred
	if pred == "" {
		pred = fmt.Sprintf("%s/%d", p.Name, p.Arity)
	}
	io := p.IO
	if io == "" {
		io = IOInput
	}
	kind := p.Kind
	if kind == "" {
		kind = KindDomain
	}
	allowed := defaultAllowedIn(io)
	if p.AllowedIn != nil {
		allowed = *p.AllowedIn
	}
	var vd *ValueDomain
	if p.ValueDomain != nil {
		vd = &ValueDomain{
			EnumArgIndex:  p.ValueDomain.EnumArgIndex,
			AllowedValues: stringset.New(p.ValueDomain.AllowedValues...),
		}
	}
	return PredEntry{
		Name:        p.Name,
		Arity:       p.Arity,
		Pred:        pred,
		Signature:   p.Signature,
		IO:          io,
		Kind:        kind,
		MeaningPL:   p.MeaningPL,
		AllowedIn:   allowed,
		ValueDomain: vd,
	}
}

// LookupByName returns the predicate entry for a bare name, if any.
func (idx *Index) LookupByName(name string) (PredEntry, bool) {
	e, ok := idx.byName[name]
	return e, ok
}

// LookupByPred returns the predicate entry for a "name/arity" key.
func (idx *Index) LookupByPred(pred string) (PredEntry, bool) {
	e, ok := idx.byPred[pred]
	return e, ok
}

// IsNAFClosedWorld reports whether pred ("name/arity") is admitted to
// NAF under the closed-world assumption.
func (idx *Index) IsNAFClosedWorld(pred string) bool {
	return idx.policy.NAFClosedWorldPredicates.Contains(pred)
}

// WhitelistMode returns the manifest's configured whitelist policy.
func (idx *Index) WhitelistMode() WhitelistMode {
	return idx.policy.WhitelistMode
}

// --- wire shapes -----------------------------------------------------

// AllowedInSpec is the wire shape of AllowedIn; fields are pointers so
// "absent" can be distinguished from "false".
type AllowedInSpec struct {
	Head        *bool `json:"head,omitempty"`
	Body        *bool `json:"body,omitempty"`
	NegatedBody *bool `json:"negated_body,omitempty"`
}

func (s *AllowedInSpec) resolve() *AllowedIn {
	if s == nil {
		return nil
	}
	get := func(b *bool, def bool) bool {
		if b == nil {
			return def
		}
		return *b
	}
	return &AllowedIn{
		Head:        get(s.Head, true),
		Body:        get(s.Body, true),
		NegatedBody: get(s.NegatedBody, false),
	}
}

// ValueDomainSpec is the wire shape of ValueDomain.
type ValueDomainSpec struct {
	EnumArgIndex  int      `json:"enum_arg_index"`
	AllowedValues []string `json:"allowed_values"`
}

// PredSpec is the wire shape of one manifest predicate entry.
type PredSpec struct {
	Name        string           `json:"name"`
	Arity       int              `json:"arity"`
	Pred        string           `json:"pred,omitempty"`
	Signature   []string         `json:"signature,omitempty"`
	IO          IORole           `json:"io,omitempty"`
	Kind        Kind             `json:"kind,omitempty"`
	MeaningPL   string           `json:"meaning_pl,omitempty"`
	AllowedIn   *AllowedIn       `json:"-"`
	ValueDomain *ValueDomainSpec `json:"value_domain,omitempty"`
}

// UnmarshalJSON resolves the allowed_in block's pointer-based defaults
// into a concrete AllowedIn at decode time.
func (p *PredSpec) UnmarshalJSON(data []byte) error {
	type alias PredSpec
	aux := struct {
		AllowedIn *AllowedInSpec `json:"allowed_in,omitempty"`
		*alias
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.AllowedIn = aux.AllowedIn.resolve()
	return nil
}

// PolicySpec is the wire shape of the manifest's policy block.
type PolicySpec struct {
	WhitelistMode            WhitelistMode `json:"whitelist_mode,omitempty"`
	NAFClosedWorldPredicates []string      `json:"naf_closed_world_predicates,omitempty"`
}

// WhitelistModeOrDefault returns the configured mode, defaulting to
// AllowOnlyListed.
func (p PolicySpec) WhitelistModeOrDefault() WhitelistMode {
	if p.WhitelistMode == "" {
		return AllowOnlyListed
	}
	return p.WhitelistMode
}

// Manifest is the wire shape of the full predicate catalog (spec.md §6).
type Manifest struct {
	Predicates []PredSpec `json:"predicates"`
	Policy     PolicySpec `json:"policy"`
}

// Load decodes a manifest from JSON and builds its Index.
func Load(data []byte) (*Index, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return New(m), nil
}
