// Copyright 2026 The Depquery Authors.
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

package main

import (
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"

	"github.com/rieckegino/depquery/expr"
)

// parseExpression turns a one-line query string into an expr.Expression
// tree. This is CLI convenience only: the engine itself never parses
// query text, it evaluates trees callers hand it directly.
// The grammar recognized here is deliberately small: deps(...),
// rdeps(universe, operand), allrdeps(...), rbuildfiles(path, ...), a
// bare target pattern, and left-to-right +, -, ^ set algebra between
// any of the above.
func parseExpression(s string) (expr.Expression, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Reason("empty query").Err()
	}

	terms, ops, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}

	result, err := parseTerm(terms[0])
	if err != nil {
		return nil, err
	}
	for i, op := range ops {
		rhs, err := parseTerm(terms[i+1])
		if err != nil {
			return nil, err
		}
		switch op {
		case '+':
			result = &expr.Union{Left: result, Right: rhs}
		case '-':
			result = &expr.Except{Left: result, Right: rhs}
		case '^':
			result = &expr.Intersect{Left: result, Right: rhs}
		}
	}
	return result, nil
}

// splitTopLevel splits s on +, -, ^ that appear outside parentheses.
func splitTopLevel(s string) ([]string, []byte, error) {
	var terms []string
	var ops []byte
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, nil, errors.Reason("unbalanced parentheses in %q", s).Err()
			}
		case '+', '-', '^':
			if depth == 0 {
				terms = append(terms, s[start:i])
				ops = append(ops, s[i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, nil, errors.Reason("unbalanced parentheses in %q", s).Err()
	}
	terms = append(terms, s[start:])
	for i, t := range terms {
		terms[i] = strings.TrimSpace(t)
	}
	return terms, ops, nil
}

func parseTerm(s string) (expr.Expression, error) {
	s = strings.TrimSpace(s)
	name, args, ok := splitCall(s)
	if !ok {
		return &expr.TargetLiteral{Pattern: s}, nil
	}

	switch name {
	case "deps":
		if len(args) != 1 {
			return nil, errors.Reason("deps() takes exactly one argument, got %d", len(args)).Err()
		}
		operand, err := parseExpression(args[0])
		if err != nil {
			return nil, err
		}
		return &expr.Deps{Operand: operand}, nil

	case "rdeps":
		if len(args) < 2 || len(args) > 3 {
			return nil, errors.Reason("rdeps() takes 2 or 3 arguments, got %d", len(args)).Err()
		}
		universe, err := parseExpression(args[0])
		if err != nil {
			return nil, err
		}
		operand, err := parseExpression(args[1])
		if err != nil {
			return nil, err
		}
		maxDepth, err := parseOptionalDepth(args, 2)
		if err != nil {
			return nil, err
		}
		return &expr.RDeps{Universe: universe, Operand: operand, MaxDepth: maxDepth}, nil

	case "allrdeps":
		if len(args) < 1 || len(args) > 2 {
			return nil, errors.Reason("allrdeps() takes 1 or 2 arguments, got %d", len(args)).Err()
		}
		operand, err := parseExpression(args[0])
		if err != nil {
			return nil, err
		}
		maxDepth, err := parseOptionalDepth(args, 1)
		if err != nil {
			return nil, err
		}
		return &expr.AllRDeps{Operand: operand, MaxDepth: maxDepth}, nil

	case "rbuildfiles":
		if len(args) == 0 {
			return nil, errors.Reason("rbuildfiles() takes at least one argument").Err()
		}
		return &expr.RBuildFiles{Paths: args}, nil

	default:
		return nil, errors.Reason("unknown query function %q", name).Err()
	}
}

func parseOptionalDepth(args []string, idx int) (int, error) {
	if idx >= len(args) {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[idx]))
	if err != nil {
		return 0, errors.Annotate(err, "parsing max-depth argument %q", args[idx]).Err()
	}
	return n, nil
}

// splitCall recognizes `name(arg1, arg2, ...)`, splitting args on
// top-level commas only (commas nested inside a sub-call stay intact).
func splitCall(s string) (name string, args []string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	name = strings.TrimSpace(s[:open])
	if name == "" {
		return "", nil, false
	}
	inner := s[open+1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return name, nil, true
	}

	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	return name, args, true
}
