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

package manifest

import "testing"

const testManifest = `{
	"predicates": [
		{"name": "delivery_status", "arity": 2, "io": "input", "kind": "domain"},
		{
			"name": "eligible", "arity": 1, "io": "derived", "kind": "decision",
			"allowed_in": {"negated_body": true}
		},
		{
			"name": "order_status", "arity": 2, "io": "input",
			"value_domain": {"enum_arg_index": 2, "allowed_values": ["open", "closed"]}
		}
	],
	"policy": {
		"whitelist_mode": "allow_only_listed",
		"naf_closed_world_predicates": ["delivery_status/2"]
	}
}`

func TestLoadAndLookup(t *testing.T) {
	idx, err := Load([]byte(testManifest))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	entry, ok := idx.LookupByName("delivery_status")
	if !ok {
		t.Fatalf("LookupByName(delivery_status) not found")
	}
	if entry.Pred != "delivery_status/2" {
		t.Errorf("Pred = %q, want delivery_status/2", entry.Pred)
	}
	if entry.AllowedIn.Head {
		t.Errorf("input predicate should default to allowed_in.head=false")
	}
	if !entry.AllowedIn.Body {
		t.Errorf("input predicate should default to allowed_in.body=true")
	}

	if !idx.IsNAFClosedWorld("delivery_status/2") {
		t.Errorf("delivery_status/2 should be NAF closed-world per policy")
	}
	if idx.WhitelistMode() != AllowOnlyListed {
		t.Errorf("WhitelistMode() = %v, want AllowOnlyListed", idx.WhitelistMode())
	}
}

func TestAllowedInOverride(t *testing.T) {
	idx, err := Load([]byte(testManifest))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	entry, ok := idx.LookupByName("eligible")
	if !ok {
		t.Fatalf("LookupByName(eligible) not found")
	}
	if !entry.AllowedIn.NegatedBody {
		t.Errorf("explicit allowed_in.negated_body=true should override the derived default (false)")
	}
	if !entry.AllowedIn.Head {
		t.Errorf("derived predicate should still default allowed_in.head=true when unset by the override")
	}
}

func TestValueDomain(t *testing.T) {
	idx, err := Load([]byte(testManifest))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	entry, ok := idx.LookupByName("order_status")
	if !ok {
		t.Fatalf("LookupByName(order_status) not found")
	}
	if entry.ValueDomain == nil {
		t.Fatalf("order_status should have a value domain")
	}
	if !entry.ValueDomain.AllowedValues.Contains("open") {
		t.Errorf("value domain should allow 'open'")
	}
	if entry.ValueDomain.AllowedValues.Contains("pending") {
		t.Errorf("value domain should not allow 'pending'")
	}
}

func TestLookupUnknownPredicate(t *testing.T) {
	idx, err := Load([]byte(testManifest))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := idx.LookupByName("not_in_manifest"); ok {
		t.Errorf("LookupByName should not find an unlisted predicate")
	}
}
