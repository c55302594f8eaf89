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

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pn2/ruleengine/ast"
)

func TestLoadEDBFacts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case.json")
	const content = `{
		"case_id": "case-001",
		"domain": "event",
		"facts": [
			{"pred": "delivery_status", "args": ["ord-1", "confirmed"]},
			{"pred": "order_amount", "args": ["ord-1", "150"]}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	caseID, domain, facts, err := LoadEDBFacts(path)
	if err != nil {
		t.Fatalf("LoadEDBFacts() error: %v", err)
	}
	if caseID != "case-001" || domain != "event" {
		t.Errorf("caseID/domain = %q/%q, want case-001/event", caseID, domain)
	}
	want := []ast.Atom{
		{Predicate: "delivery_status", Args: []ast.Term{ast.Constant{Symbol: "ord-1"}, ast.Constant{Symbol: "confirmed"}}},
		{Predicate: "order_amount", Args: []ast.Term{ast.Constant{Symbol: "ord-1"}, ast.Constant{Symbol: "150"}}},
	}
	if diff := cmp.Diff(want, facts); diff != "" {
		t.Errorf("LoadEDBFacts() facts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEDBFactsMissingFile(t *testing.T) {
	if _, _, _, err := LoadEDBFacts("/nonexistent/case.json"); err == nil {
		t.Fatalf("LoadEDBFacts() should error on a missing file")
	}
}
