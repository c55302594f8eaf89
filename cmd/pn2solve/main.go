// Copyright 2024 Google LLC
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

// Binary pn2solve validates a rule base and runs the stratified Datalog
// evaluator against a case's facts, answering one or more goal queries.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/golang/glog"
	"go.uber.org/multierr"

	"github.com/pn2/ruleengine/analysis"
	"github.com/pn2/ruleengine/ast"
	"github.com/pn2/ruleengine/engine"
	"github.com/pn2/ruleengine/factstore"
	"github.com/pn2/ruleengine/goalparser"
	"github.com/pn2/ruleengine/manifest"
	"github.com/pn2/ruleengine/store"
)

var (
	manifestPath   = flag.String("manifest", "", "path to the predicate manifest JSON file (required)")
	rulesPath      = flag.String("rules", "", "path to a JSON array of rules (required)")
	conditionsPath = flag.String("conditions", "", "path to a JSON array of condition definitions (optional)")
	factsPath      = flag.String("facts", "", "path to a case's EDB facts JSON file (required)")
	goals          goalList
	showDerived    = flag.Bool("show-derived", false, "print every derived (IDB) fact, not just goal answers")
)

type goalList []string

func (g *goalList) String() string { return fmt.Sprint([]string(*g)) }
func (g *goalList) Set(v string) error {
	*g = append(*g, v)
	return nil
}

func main() {
	flag.Var(&goals, "goal", "a goal query, e.g. 'eligible_bidder(?P, ?O)' (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pn2solve -manifest FILE -rules FILE -facts FILE [-goal GOAL]...\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(); err != nil {
		glog.Errorf("pn2solve: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if *manifestPath == "" || *rulesPath == "" || *factsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	idx, err := loadManifest(*manifestPath)
	if err != nil {
		return err
	}
	rules, err := loadRules(*rulesPath)
	if err != nil {
		return err
	}
	var conditions []ast.Condition
	if *conditionsPath != "" {
		conditions, err = loadConditions(*conditionsPath)
		if err != nil {
			return err
		}
	}
	caseID, domain, facts, err := store.LoadEDBFacts(*factsPath)
	if err != nil {
		return err
	}
	glog.V(1).Infof("loaded case %q (domain=%s): %d EDB facts, %d rules", caseID, domain, len(facts), len(rules))

	if err := validateAll(idx, rules); err != nil {
		return err
	}

	fstore := factstore.NewSimpleInMemoryStore()
	for _, f := range facts {
		fstore.Add(f)
	}

	strata, err := engine.Evaluate(rules, conditions, fstore)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	glog.V(1).Infof("evaluated %d strata", strata.MaxStratum()+1)

	if *showDerived {
		printDerived(fstore, facts)
	}
	return answerGoals(fstore, goals)
}

// validateAll runs every rule through the six-stage validator and fails
// closed: a rule base with even one invalid rule is never evaluated.
func validateAll(idx *manifest.Index, rules []ast.Rule) error {
	v := analysis.NewValidator(idx)
	var errs error
	for _, r := range rules {
		report := v.Validate(r, "")
		if !report.IsValid {
			for _, e := range report.Errors {
				errs = multierr.Append(errs, fmt.Errorf("%s %s: %s", r.RuleID, e.Path, e.Message))
			}
		}
		for _, w := range report.Warnings {
			glog.Warningf("%s: %s", r.RuleID, w)
		}
	}
	return errs
}

func answerGoals(fstore factstore.ReadOnlyFactStore, goals []string) error {
	for _, g := range goals {
		atom, err := goalparser.Parse(g)
		if err != nil {
			return err
		}
		bindings, err := engine.Query(fstore, atom)
		if err != nil {
			return err
		}
		if len(bindings) == 0 {
			fmt.Printf("%s: false\n", g)
			continue
		}
		if len(atom.Vars()) == 0 {
			fmt.Printf("%s: true\n", g)
			continue
		}
		fmt.Printf("%s: %d binding(s)\n", g, len(bindings))
		for _, b := range bindings {
			fmt.Printf("  %v\n", b)
		}
	}
	return nil
}

func printDerived(fstore factstore.ReadOnlyFactStore, edb []ast.Atom) {
	edbSet := make(map[string]bool, len(edb))
	for _, f := range edb {
		edbSet[f.String()] = true
	}
	preds := fstore.ListPredicates()
	sort.Slice(preds, func(i, j int) bool { return preds[i].String() < preds[j].String() })
	fmt.Println("derived facts:")
	for _, sym := range preds {
		fstore.GetFacts(sym, func(a ast.Atom) error {
			if !edbSet[a.String()] {
				fmt.Printf("  %s\n", a)
			}
			return nil
		})
	}
}

func loadManifest(path string) (*manifest.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	idx, err := manifest.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return idx, nil
}

func loadRules(path string) ([]ast.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var wire []ast.RuleJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	rules := make([]ast.Rule, len(wire))
	for i, r := range wire {
		rules[i] = analysis.Normalize(r.ToRule())
	}
	return rules, nil
}

func loadConditions(path string) ([]ast.Condition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading conditions: %w", err)
	}
	var wire []ast.ConditionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parsing conditions: %w", err)
	}
	conditions := make([]ast.Condition, len(wire))
	for i, c := range wire {
		conditions[i] = c.ToCondition()
	}
	return conditions, nil
}

