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

// Package goalparser parses the textual goal query syntax used by the
// solver CLI, e.g. "eligible_bidder(?P, ?O)" or "is_valid".
package goalparser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pn2/ruleengine/ast"
)

var goalPattern = regexp.MustCompile(`^([a-z][a-z0-9_]*)(?:\s*\(([^)]*)\))?\s*$`)

// Parse parses a goal string into an atom. Arguments may be variables
// ("?X") or bare/quoted constants; a predicate with no parentheses parses
// as a zero-argument atom.
func Parse(goal string) (ast.Atom, error) {
	m := goalPattern.FindStringSubmatch(strings.TrimSpace(goal))
	if m == nil {
		return ast.Atom{}, fmt.Errorf("goalparser: invalid goal syntax: %q", goal)
	}
	pred, rawArgs := m[1], m[2]

	var args []ast.Term
	if strings.TrimSpace(rawArgs) != "" {
		for _, raw := range strings.Split(rawArgs, ",") {
			args = append(args, ast.NewTerm(unquote(strings.TrimSpace(raw))))
		}
	}
	return ast.Atom{Predicate: pred, Args: args}, nil
}

// unquote strips one layer of matching single or double quotes, mirroring
// the original command line's tolerance for quoted constant arguments.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
