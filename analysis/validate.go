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
	"fmt"
	"sort"
	"strings"

	"bitbucket.org/creachadair/stringset"

	"github.com/pn2/ruleengine/ast"
	"github.com/pn2/ruleengine/manifest"
)

// ErrorCode is a stable identifier for one class of validation failure.
type ErrorCode string

// The error codes named in spec.md §6, grouped by the validation stage
// that raises them.
const (
	// A — schema.
	SchemaViolation ErrorCode = "SCHEMA_VIOLATION"

	// B — predicates & arity.
	PredUnknown               ErrorCode = "PRED_UNKNOWN"
	ArityMismatch             ErrorCode = "ARITY_MISMATCH"
	PredNotAllowedInHead      ErrorCode = "PRED_NOT_ALLOWED_IN_HEAD"
	PredNotAllowedInBody      ErrorCode = "PRED_NOT_ALLOWED_IN_BODY"
	NegationNotAllowedForPred ErrorCode = "NEGATION_NOT_ALLOWED_FOR_PRED"

	// C — enumerations. VarNaming sits here but is raised by stage D's
	// variable-naming check.
	VarNaming        ErrorCode = "VAR_NAMING"
	EnumValueInvalid ErrorCode = "ENUM_VALUE_INVALID"

	// D — safety. ConstraintsNotEmpty is named by spec.md §6 but, as in
	// the original implementation, a non-empty constraints list produces
	// a warning string rather than a ValidationError — the code is kept
	// here only because the error-code surface names it.
	VarUnboundHead     ErrorCode = "VAR_UNBOUND_HEAD"
	VarUnboundNegated  ErrorCode = "VAR_UNBOUND_NEGATED"
	ConstraintsNotEmpty ErrorCode = "CONSTRAINTS_NOT_EMPTY"

	// E — provenance.
	ProvenanceEmptyUnit  ErrorCode = "PROVENANCE_EMPTY_UNIT"
	ProvenanceEmptyQuote ErrorCode = "PROVENANCE_EMPTY_QUOTE"
	QuoteNotInSource     ErrorCode = "QUOTE_NOT_IN_SOURCE"

	// F — assumptions.
	AssumptionPredInvalid      ErrorCode = "ASSUMPTION_PRED_INVALID"
	AssumptionBadAtomIndex     ErrorCode = "ASSUMPTION_BAD_ATOM_INDEX"
	AssumptionBadArgIndex      ErrorCode = "ASSUMPTION_BAD_ARG_INDEX"
	AssumptionConstMismatch    ErrorCode = "ASSUMPTION_CONST_MISMATCH"
	AssumptionRequiredClosedWorld ErrorCode = "ASSUMPTION_REQUIRED_CLOSED_WORLD"
)

// ValidationError is one structured finding from the validator: a
// stable code, a JSON-Pointer-style path to the offence, a human
// message, and a machine-actionable "expected fix".
type ValidationError struct {
	Code        ErrorCode
	Path        string
	Message     string
	ExpectedFix string
	Details     map[string]any
}

// Report is the full result of validating one rule.
type Report struct {
	IsValid        bool
	Errors         []ValidationError
	Warnings       []string
	NormalizedRule ast.Rule
}

// maxErrors bounds the number of errors collected per rule, to bound
// per-rule validation cost (spec.md §4.3).
const maxErrors = 20

// SchemaChecker performs stage A structural validation against a raw,
// not-yet-parsed rule payload. It is optional: a nil checker skips
// stage A entirely, mirroring the original implementation's behavior
// when its optional jsonschema dependency isn't installed. A real JSON
// Schema backend is an external collaborator — it is not part of this
// module's own dependency stack.
type SchemaChecker interface {
	CheckRule(raw []byte) []ValidationError
}

// Validator checks rules against a predicate manifest.
type Validator struct {
	index *manifest.Index
}

// NewValidator constructs a Validator bound to a manifest index.
func NewValidator(index *manifest.Index) *Validator {
	return &Validator{index: index}
}

// Validate runs stages B-F of the pipeline against an already-parsed
// rule. Use ValidateRaw to also run stage A against the rule's raw JSON
// form.
func (v *Validator) Validate(rule ast.Rule, sourceText string) Report {
	var errs []ValidationError
	var warnings []string

	normalized := Normalize(rule)

	v.stageB(normalized, &errs)
	if len(errs) < maxErrors {
		v.stageC(normalized, &errs)
	}
	if len(errs) < maxErrors {
		v.stageD(normalized, &errs, &warnings)
	}
	if len(errs) < maxErrors {
		v.stageE(normalized, &errs, sourceText)
	}
	if len(errs) < maxErrors {
		v.stageF(normalized, &errs)
	}
	if len(errs) > maxErrors {
		errs = errs[:maxErrors]
	}

	return Report{
		IsValid:        len(errs) == 0,
		Errors:         errs,
		Warnings:       warnings,
		NormalizedRule: normalized,
	}
}

// ValidateRaw runs stage A (schema) against the raw rule payload, then
// — if and only if stage A found nothing — parses it and runs stages
// B-F. A schema failure short-circuits the remaining stages, per
// spec.md §4.3.
func (v *Validator) ValidateRaw(raw []byte, checker SchemaChecker, sourceText string) Report {
	if checker != nil {
		if errs := checker.CheckRule(raw); len(errs) > 0 {
			return Report{IsValid: false, Errors: errs}
		}
	}
	wire, err := ast.ParseRuleJSON(raw)
	if err != nil {
		return Report{
			IsValid: false,
			Errors: []ValidationError{{
				Code:        SchemaViolation,
				Path:        "/",
				Message:     err.Error(),
				ExpectedFix: "Fix the rule's JSON encoding.",
			}},
		}
	}
	return v.Validate(wire.ToRule(), sourceText)
}

// --- Stage B — predicates & arity ------------------------------------

func (v *Validator) stageB(rule ast.Rule, errs *[]ValidationError) {
	v.checkAtom(rule.Head, "/head", true, errs)
	for i, a := range rule.Body {
		// Built-ins (ge/gt/le/lt/eq/ne) are manifest entries too — see
		// manifest.New's auto-registration — so they go through the same
		// whitelist/arity/allowed_in checks as any other body atom.
		v.checkAtom(a, fmt.Sprintf("/body/%d", i), false, errs)
	}
}

func (v *Validator) checkAtom(a ast.Atom, path string, inHead bool, errs *[]ValidationError) {
	entry, ok := v.index.LookupByName(a.Predicate)
	if !ok {
		if v.index.WhitelistMode() == manifest.AllowUnlisted {
			// Declared meaning of allow_unlisted (spec.md §9): unknown
			// predicates are not an error, but arity and allowed_in
			// cannot be checked without a manifest entry.
			return
		}
		*errs = append(*errs, ValidationError{
			Code:        PredUnknown,
			Path:        path + "/pred",
			Message:     fmt.Sprintf("predicate '%s' is not present in the manifest.", a.Predicate),
			ExpectedFix: fmt.Sprintf("Use a predicate from the manifest, or add '%s' to the manifest.", a.Predicate),
			Details:     map[string]any{"pred": a.Predicate},
		})
		return
	}

	if len(a.Args) != entry.Arity {
		*errs = append(*errs, ValidationError{
			Code:        ArityMismatch,
			Path:        path + "/args",
			Message:     fmt.Sprintf("predicate '%s' requires %d arg(s), got %d.", a.Predicate, entry.Arity, len(a.Args)),
			ExpectedFix: fmt.Sprintf("Supply exactly %d arguments for '%s'.", entry.Arity, a.Predicate),
			Details:     map[string]any{"expected": entry.Arity, "actual": len(a.Args)},
		})
	}

	if inHead {
		if !entry.AllowedIn.Head {
			*errs = append(*errs, ValidationError{
				Code:        PredNotAllowedInHead,
				Path:        path + "/pred",
				Message:     fmt.Sprintf("predicate '%s' (io=%s) cannot be a rule head.", a.Predicate, entry.IO),
				ExpectedFix: "A rule head should be a derived or both predicate. Change the predicate or set allowed_in.head=true in the manifest.",
				Details:     map[string]any{"pred": a.Predicate, "io": string(entry.IO)},
			})
		}
		return
	}

	if a.Negated {
		if !entry.AllowedIn.NegatedBody && !v.index.IsNAFClosedWorld(entry.Pred) {
			*errs = append(*errs, ValidationError{
				Code:        NegationNotAllowedForPred,
				Path:        path + "/pred",
				Message:     fmt.Sprintf("negation (NAF) of predicate '%s' is not allowed: allowed_in.negated_body=false and the predicate is not in naf_closed_world.", a.Predicate),
				ExpectedFix: fmt.Sprintf("Add '%s' to policy.naf_closed_world_predicates, or set allowed_in.negated_body=true in the manifest.", entry.Pred),
				Details:     map[string]any{"pred": entry.Pred},
			})
		}
		return
	}

	if !entry.AllowedIn.Body {
		*errs = append(*errs, ValidationError{
			Code:        PredNotAllowedInBody,
			Path:        path + "/pred",
			Message:     fmt.Sprintf("predicate '%s' cannot appear in a rule body.", a.Predicate),
			ExpectedFix: fmt.Sprintf("Check allowed_in.body for '%s' in the manifest.", a.Predicate),
			Details:     map[string]any{"pred": a.Predicate},
		})
	}
}

// --- Stage C — enumerations -------------------------------------------

func (v *Validator) stageC(rule ast.Rule, errs *[]ValidationError) {
	v.checkEnumArgs(rule.Head, "/head", errs)
	for i, a := range rule.Body {
		v.checkEnumArgs(a, fmt.Sprintf("/body/%d", i), errs)
	}
}

func (v *Validator) checkEnumArgs(a ast.Atom, path string, errs *[]ValidationError) {
	entry, ok := v.index.LookupByName(a.Predicate)
	if !ok || entry.ValueDomain == nil {
		return
	}
	k := entry.ValueDomain.EnumArgIndex - 1 // 0-based
	if k < 0 || k >= len(a.Args) {
		return
	}
	c, isConst := a.Args[k].(ast.Constant)
	if !isConst {
		return // variables are accepted; only concrete constants are checked.
	}
	if !entry.ValueDomain.AllowedValues.Contains(c.Symbol) {
		allowed := entry.ValueDomain.AllowedValues.Elements()
		sort.Strings(allowed)
		*errs = append(*errs, ValidationError{
			Code:        EnumValueInvalid,
			Path:        fmt.Sprintf("%s/args/%d", path, k),
			Message:     fmt.Sprintf("value '%s' is not allowed for predicate '%s' (argument %d).", c.Symbol, a.Predicate, k+1),
			ExpectedFix: fmt.Sprintf("Use one of: %v.", allowed),
			Details:     map[string]any{"allowed": allowed, "got": c.Symbol},
		})
	}
}

// --- Stage D — safety (range restriction + NAF safety + naming) ------

func (v *Validator) stageD(rule ast.Rule, errs *[]ValidationError, warnings *[]string) {
	posVars := stringset.New()
	for _, a := range rule.Body {
		if a.Negated {
			continue
		}
		for _, t := range a.Args {
			if vr, ok := t.(ast.Variable); ok {
				posVars.Add(vr.Symbol)
			}
		}
	}

	for _, t := range rule.Head.Args {
		vr, ok := t.(ast.Variable)
		if !ok || posVars.Contains(vr.Symbol) {
			continue
		}
		*errs = append(*errs, ValidationError{
			Code:        VarUnboundHead,
			Path:        "/head/args",
			Message:     fmt.Sprintf("variable '%s' in the rule head is not bound by any positive body atom.", vr.Symbol),
			ExpectedFix: fmt.Sprintf("Add a positive body atom that grounds variable '%s'.", vr.Symbol),
			Details:     map[string]any{"var": vr.Symbol},
		})
	}

	for i, a := range rule.Body {
		if !a.Negated {
			continue
		}
		for _, t := range a.Args {
			vr, ok := t.(ast.Variable)
			if !ok || posVars.Contains(vr.Symbol) {
				continue
			}
			*errs = append(*errs, ValidationError{
				Code:        VarUnboundNegated,
				Path:        fmt.Sprintf("/body/%d", i),
				Message:     fmt.Sprintf("variable '%s' in negated atom body[%d] is not bound by the positive body.", vr.Symbol, i),
				ExpectedFix: fmt.Sprintf("Add a positive atom that grounds '%s' before negated body[%d].", vr.Symbol, i),
				Details:     map[string]any{"var": vr.Symbol, "atom_index": i},
			})
		}
	}

	type pathed struct {
		atom ast.Atom
		path string
	}
	all := make([]pathed, 0, len(rule.Body)+1)
	all = append(all, pathed{rule.Head, "/head"})
	for i, a := range rule.Body {
		all = append(all, pathed{a, fmt.Sprintf("/body/%d", i)})
	}
	for _, pa := range all {
		for _, t := range pa.atom.Args {
			vr, ok := t.(ast.Variable)
			if !ok || ast.IsVariableSyntax(vr.Symbol) {
				continue
			}
			*errs = append(*errs, ValidationError{
				Code:        VarNaming,
				Path:        pa.path + "/args",
				Message:     fmt.Sprintf("variable '%s' does not match the variable syntax ^\\?[A-Za-z][A-Za-z0-9_]*$.", vr.Symbol),
				ExpectedFix: fmt.Sprintf("Rename '%s' to a valid variable, e.g. '?X' or '?Offer1'.", vr.Symbol),
				Details:     map[string]any{"var": vr.Symbol},
			})
		}
	}

	if len(rule.Constraints) > 0 {
		*warnings = append(*warnings, fmt.Sprintf(
			"rule carries %d non-Horn constraint(s). An empty list is preferred.", len(rule.Constraints)))
	}
}

// --- Stage E — provenance ---------------------------------------------

func (v *Validator) stageE(rule ast.Rule, errs *[]ValidationError, sourceText string) {
	prov := rule.Provenance
	if prov == nil {
		return
	}

	if len(prov.Unit) == 0 {
		*errs = append(*errs, ValidationError{
			Code:        ProvenanceEmptyUnit,
			Path:        "/provenance/unit",
			Message:     "provenance.unit is empty — no document unit identifier.",
			ExpectedFix: `Supply a section or paragraph identifier, e.g. ["§3(1)(b)"].`,
		})
	}

	quote := strings.TrimSpace(prov.Quote)
	if quote == "" {
		*errs = append(*errs, ValidationError{
			Code:        ProvenanceEmptyQuote,
			Path:        "/provenance/quote",
			Message:     "provenance.quote is empty — no source quote.",
			ExpectedFix: "Paste a verbatim, short excerpt from the document as the quote (max 400 characters).",
		})
		return
	}
	if sourceText != "" {
		if !strings.Contains(normalizeWS(sourceText), normalizeWS(quote)) {
			preview := quote
			if len(preview) > 100 {
				preview = preview[:100]
			}
			*errs = append(*errs, ValidationError{
				Code:        QuoteNotInSource,
				Path:        "/provenance/quote",
				Message:     "quote not found in source text (after whitespace normalization).",
				ExpectedFix: "Use a verbatim excerpt from the source text as the quote.",
				Details:     map[string]any{"quote_preview": preview},
			})
		}
	}
}

// normalizeWS collapses runs of whitespace to a single space, mirroring
// " ".join(s.split()) in the original implementation.
func normalizeWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// --- Stage F — assumptions ----------------------------------------------

func (v *Validator) stageF(rule ast.Rule, errs *[]ValidationError) {
	negatedCW := stringset.New()
	for _, a := range rule.Body {
		if !a.Negated {
			continue
		}
		entry, ok := v.index.LookupByName(a.Predicate)
		if ok && v.index.IsNAFClosedWorld(entry.Pred) {
			negatedCW.Add(entry.Pred)
		}
	}

	cwCovered := stringset.New()
	for i, assumption := range rule.Assumptions {
		if assumption.Type == ast.ClosedWorld {
			cwCovered.Add(assumption.About.Pred)
		}
		v.checkAssumption(assumption, i, rule.Body, errs)
	}

	for _, pred := range negatedCW.Elements() {
		if cwCovered.Contains(pred) {
			continue
		}
		*errs = append(*errs, ValidationError{
			Code: AssumptionRequiredClosedWorld,
			Path: "/assumptions",
			Message: fmt.Sprintf(
				"predicate '%s' is used under NAF and belongs to naf_closed_world — a type='closed_world' assumption is required.", pred),
			ExpectedFix: fmt.Sprintf(
				`Add to assumptions: {"about": {"pred": "%s"}, "type": "closed_world", "text": "..."}.`, pred),
			Details: map[string]any{"pred": pred},
		})
	}
}

func (v *Validator) checkAssumption(a ast.ScopedAssumption, idx int, body []ast.Atom, errs *[]ValidationError) {
	predStr := a.About.Pred
	entry, ok := v.index.LookupByPred(predStr)
	if !ok && strings.Contains(predStr, "/") {
		entry, ok = v.index.LookupByName(strings.SplitN(predStr, "/", 2)[0])
	}
	if !ok {
		*errs = append(*errs, ValidationError{
			Code:        AssumptionPredInvalid,
			Path:        fmt.Sprintf("/assumptions/%d/about/pred", idx),
			Message:     fmt.Sprintf("predicate '%s' in the assumption is not present in the manifest.", predStr),
			ExpectedFix: `Use the "name/arity" format (e.g. "delivery_status/2") and ensure the predicate is in the manifest.`,
			Details:     map[string]any{"pred": predStr},
		})
		return
	}

	atomIndex := a.About.AtomIndex
	argIndex := a.About.ArgIndex
	constVal := a.About.Const

	if atomIndex == nil {
		return
	}
	if *atomIndex < 0 || *atomIndex >= len(body) {
		*errs = append(*errs, ValidationError{
			Code: AssumptionBadAtomIndex,
			Path: fmt.Sprintf("/assumptions/%d/about/atom_index", idx),
			Message: fmt.Sprintf(
				"atom_index=%d is out of range for the rule body (body has %d atom(s), indices 0..%d).",
				*atomIndex, len(body), len(body)-1),
			ExpectedFix: fmt.Sprintf("Use an atom_index in the range 0..%d.", len(body)-1),
			Details:     map[string]any{"atom_index": *atomIndex, "body_len": len(body)},
		})
		return
	}

	if argIndex == nil {
		return
	}
	if *argIndex < 1 || *argIndex > entry.Arity {
		*errs = append(*errs, ValidationError{
			Code: AssumptionBadArgIndex,
			Path: fmt.Sprintf("/assumptions/%d/about/arg_index", idx),
			Message: fmt.Sprintf(
				"arg_index=%d is out of range for '%s' (arity=%d, allowed: 1..%d).",
				*argIndex, entry.Pred, entry.Arity, entry.Arity),
			ExpectedFix: fmt.Sprintf("Use an arg_index in the range 1..%d.", entry.Arity),
			Details:     map[string]any{"arg_index": *argIndex, "arity": entry.Arity},
		})
		return
	}

	if constVal == nil {
		return
	}
	refAtom := body[*atomIndex]
	k := *argIndex - 1
	if k >= len(refAtom.Args) {
		return
	}
	c, isConst := refAtom.Args[k].(ast.Constant)
	if isConst && c.Symbol != *constVal {
		*errs = append(*errs, ValidationError{
			Code: AssumptionConstMismatch,
			Path: fmt.Sprintf("/assumptions/%d/about/const", idx),
			Message: fmt.Sprintf(
				"const='%s' does not match body[%d].args[%d]='%s'.", *constVal, *atomIndex, k, c.Symbol),
			ExpectedFix: fmt.Sprintf("Change const to '%s', or fix atom_index/arg_index.", c.Symbol),
			Details:     map[string]any{"expected": c.Symbol, "got": *constVal},
		})
	}
}
