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

// Package engine evaluates a stratified set of Horn rules against a fact
// store to closure, using semi-naive bottom-up evaluation within each
// stratum, and answers goal queries against the result.
package engine

import (
	"fmt"
	"sort"

	"github.com/golang/glog"

	"github.com/pn2/ruleengine/analysis"
	"github.com/pn2/ruleengine/ast"
	"github.com/pn2/ruleengine/builtin"
	"github.com/pn2/ruleengine/condition"
	"github.com/pn2/ruleengine/factstore"
	"github.com/pn2/ruleengine/unionfind"
)

// defaultMaxIterationsPerStratum bounds the number of semi-naive rounds run
// within a single stratum before the evaluator gives up and reports a
// diagnostic error, rather than looping forever over a runaway rule set.
const defaultMaxIterationsPerStratum = 10000

// Options configures one evaluation run.
type Options struct {
	MaxIterationsPerStratum int
}

// Option mutates Options.
type Option func(*Options)

// WithMaxIterationsPerStratum overrides the default iteration cap.
func WithMaxIterationsPerStratum(n int) Option {
	return func(o *Options) { o.MaxIterationsPerStratum = n }
}

func resolveOptions(opts []Option) Options {
	o := Options{MaxIterationsPerStratum: defaultMaxIterationsPerStratum}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// preparedRule is a rule with its body reordered for evaluation — positive
// non-builtin atoms first, then builtins, then negated atoms — and its
// positive atom positions recorded for semi-naive pivoting.
type preparedRule struct {
	head        ast.Atom
	body        []ast.Atom
	positiveIdx []int
}

// reorder splits a rule's body into the order evaluation requires: builtins
// need their arguments grounded by the positive atoms before them, and NAF
// needs every atom in the rest of the body to have already grounded the
// negated atom's variables (safety, checked by the validator).
func reorder(r ast.Rule) preparedRule {
	var positive, builtins, negated []ast.Atom
	for _, a := range r.Body {
		switch {
		case builtin.IsBuiltin(a.Sym()):
			builtins = append(builtins, a)
		case a.Negated:
			negated = append(negated, a)
		default:
			positive = append(positive, a)
		}
	}
	body := make([]ast.Atom, 0, len(r.Body))
	body = append(body, positive...)
	body = append(body, builtins...)
	body = append(body, negated...)

	positiveIdx := make([]int, len(positive))
	for i := range positive {
		positiveIdx[i] = i
	}
	return preparedRule{head: r.Head, body: body, positiveIdx: positiveIdx}
}

// groundAtom resolves every argument of atom through subst, returning a new
// atom whose arguments are as grounded as subst permits. The result is only
// usable as a fact once IsGround reports true.
func groundAtom(atom ast.Atom, subst unionfind.UnionFind) ast.Atom {
	args := make([]ast.Term, len(atom.Args))
	for i, a := range atom.Args {
		args[i] = subst.Get(a)
	}
	return ast.Atom{Predicate: atom.Predicate, Args: args, Negated: atom.Negated}
}

// matchBody finds every substitution extending an empty binding under
// which body holds. pivot names the one positive atom position that must
// be matched against delta instead of all; pass -1 to match every positive
// atom against all (a full, non-incremental pass).
func matchBody(body []ast.Atom, pivot int, all, delta factstore.ReadOnlyFactStore) ([]unionfind.UnionFind, error) {
	var results []unionfind.UnionFind
	var walk func(idx int, subst unionfind.UnionFind) error
	walk = func(idx int, subst unionfind.UnionFind) error {
		if idx == len(body) {
			results = append(results, subst)
			return nil
		}
		atom := body[idx]
		sym := atom.Sym()

		if builtin.IsBuiltin(sym) {
			grounded := groundAtom(atom, subst)
			if !grounded.IsGround() {
				return nil // cannot decide yet; this branch contributes nothing.
			}
			ok, err := builtin.Decide(grounded)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return walk(idx+1, subst)
		}

		if atom.Negated {
			grounded := groundAtom(atom, subst)
			if !grounded.IsGround() {
				return fmt.Errorf("engine: unsafe negation — %s has an unbound variable at evaluation time", atom)
			}
			check := grounded
			check.Negated = false
			if all.Contains(check) {
				return nil
			}
			return walk(idx+1, subst)
		}

		source := all
		if idx == pivot {
			source = delta
		}
		return source.GetFacts(sym, func(fact ast.Atom) error {
			newSubst, ok := unionfind.UnifyTermsExtend(atom.Args, fact.Args, subst)
			if !ok {
				return nil
			}
			return walk(idx+1, newSubst)
		})
	}
	if err := walk(0, unionfind.New()); err != nil {
		return nil, err
	}
	return results, nil
}

// evalStratum runs one stratum's rules to a fixed point via semi-naive
// bottom-up evaluation: a full seed pass, then rounds that only re-match
// rules against the facts derived in the previous round.
func evalStratum(stratumNum int, rules []preparedRule, store factstore.FactStore, o Options) error {
	delta := factstore.NewSimpleInMemoryStore()
	for _, r := range rules {
		substs, err := matchBody(r.body, -1, store, store)
		if err != nil {
			return err
		}
		for _, s := range substs {
			head := groundAtom(r.head, s)
			if !head.IsGround() {
				continue
			}
			if store.Add(head) {
				delta.Add(head)
			}
		}
	}

	iter := 0
	for delta.EstimateFactCount() > 0 {
		iter++
		if iter > o.MaxIterationsPerStratum {
			return fmt.Errorf("engine: stratum %d did not reach a fixed point within %d iterations",
				stratumNum, o.MaxIterationsPerStratum)
		}
		glog.V(1).Infof("stratum %d: iteration %d, %d delta facts", stratumNum, iter, delta.EstimateFactCount())

		next := factstore.NewSimpleInMemoryStore()
		for _, r := range rules {
			for _, p := range r.positiveIdx {
				substs, err := matchBody(r.body, p, store, delta)
				if err != nil {
					return err
				}
				for _, s := range substs {
					head := groundAtom(r.head, s)
					if !head.IsGround() {
						continue
					}
					if store.Add(head) {
						next.Add(head)
					}
				}
			}
		}
		delta = next
	}
	return nil
}

// Evaluate expands meets_condition references, stratifies the resulting
// rules, and evaluates every stratum in order against store, which is
// mutated in place to contain the full model (EDB plus every derived
// fact). It returns the stratum assignment computed along the way, mainly
// for diagnostics and tests.
func Evaluate(rules []ast.Rule, conditions []ast.Condition, store factstore.FactStore, opts ...Option) (analysis.Strata, error) {
	o := resolveOptions(opts)

	expanded := condition.NewExpander(conditions).ExpandRules(rules)

	strata, err := analysis.Stratify(expanded)
	if err != nil {
		return nil, err
	}

	byStratum := make(map[int][]preparedRule)
	for _, r := range expanded {
		if r.IsFact() {
			byStratum[strata[r.Head.Sym()]] = append(byStratum[strata[r.Head.Sym()]], preparedRule{head: r.Head})
			continue
		}
		s := strata[r.Head.Sym()]
		byStratum[s] = append(byStratum[s], reorder(r))
	}

	max := strata.MaxStratum()
	for s := 0; s <= max; s++ {
		glog.V(1).Infof("evaluating stratum %d (%d rules)", s, len(byStratum[s]))
		if err := evalStratum(s, byStratum[s], store, o); err != nil {
			return nil, err
		}
	}
	return strata, nil
}

// Binding is one answer to a goal query: a map from variable name (with
// its leading '?') to the constant it was bound to.
type Binding map[string]string

// Query answers a goal atom against store, returning one Binding per
// matching fact. goal's arguments may mix variables and constants; ground
// arguments act as a filter.
func Query(store factstore.ReadOnlyFactStore, goal ast.Atom) ([]Binding, error) {
	var out []Binding
	err := store.GetFacts(goal.Sym(), func(fact ast.Atom) error {
		uf, ok := unionfind.UnifyTerms(goal.Args, fact.Args)
		if !ok {
			return nil
		}
		b := make(Binding)
		for _, v := range goal.Vars() {
			b[v.Symbol] = uf.Get(v).String()
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return fmt.Sprint(out[i]) < fmt.Sprint(out[j]) })
	return out, nil
}
