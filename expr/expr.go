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

// Package expr defines the query expression tree this engine evaluates.
// Parsing a query string into this tree is out of scope: callers build
// trees directly, or plug in their own parser in front of it.
package expr

import (
	"context"

	"github.com/rieckegino/depquery/target"
)

// Env is everything an Expression needs to evaluate itself: the
// primitives getFwdDeps/getReverseDeps/... exposed to query expressions.
// The concrete implementation lives in the root depquery package.
type Env interface {
	FwdDeps(ctx context.Context, targets []*target.Target) ([]*target.Target, error)
	ReverseDeps(ctx context.Context, targets []*target.Target) ([]*target.Target, error)
	TransitiveClosure(ctx context.Context, seeds []*target.Target) ([]*target.Target, error)
	AllRDeps(ctx context.Context, targets []*target.Target, maxDepth int) ([]*target.Target, error)
	TargetsMatchingPattern(ctx context.Context, pattern string, cb func([]*target.Target) error) error
	RBuildFiles(ctx context.Context, paths []string, cb func([]*target.Target) error) error
	UniverseScope() []string
}

// Callback receives one batch of resulting targets at a time.
type Callback func(batch []*target.Target) error

// Expression is a node in the query tree.
type Expression interface {
	// Eval evaluates the expression, streaming results to cb.
	Eval(ctx context.Context, env Env, cb Callback) error
	// String renders the expression for diagnostics; error messages
	// quote the full expression string.
	String() string
}

// TargetLiteral evaluates a single target pattern.
type TargetLiteral struct {
	Pattern string
}

func (t *TargetLiteral) Eval(ctx context.Context, env Env, cb Callback) error {
	return env.TargetsMatchingPattern(ctx, t.Pattern, func(batch []*target.Target) error {
		return cb(batch)
	})
}

func (t *TargetLiteral) String() string { return t.Pattern }

// Deps evaluates deps(operand).
type Deps struct {
	Operand Expression
}

func (d *Deps) Eval(ctx context.Context, env Env, cb Callback) error {
	seeds, err := collect(ctx, env, d.Operand)
	if err != nil {
		return err
	}
	closure, err := env.TransitiveClosure(ctx, seeds)
	if err != nil {
		return err
	}
	return cb(closure)
}

func (d *Deps) String() string { return "deps(" + d.Operand.String() + ")" }

// RDeps evaluates rdeps(universe, operand). Note
// the Query Driver rewrites rdeps(<singleton universe literal>, T) into
// AllRDeps(T) before evaluation; RDeps itself
// still evaluates every rdeps whose universe is not that literal.
type RDeps struct {
	Universe Expression
	Operand  Expression
	MaxDepth int
}

func (r *RDeps) Eval(ctx context.Context, env Env, cb Callback) error {
	universe, err := collect(ctx, env, r.Universe)
	if err != nil {
		return err
	}
	targets, err := collect(ctx, env, r.Operand)
	if err != nil {
		return err
	}
	universeSet := map[string]*target.Target{}
	for _, t := range universe {
		universeSet[t.Label.String()] = t
	}

	visited := map[string]*target.Target{}
	for _, t := range targets {
		visited[t.Label.String()] = t
	}
	frontier := targets
	for depth := 0; r.MaxDepth <= 0 || depth < r.MaxDepth; depth++ {
		if len(frontier) == 0 {
			break
		}
		parents, err := env.ReverseDeps(ctx, frontier)
		if err != nil {
			return err
		}
		var next []*target.Target
		for _, p := range parents {
			if _, inUniverse := universeSet[p.Label.String()]; !inUniverse {
				continue
			}
			if _, seen := visited[p.Label.String()]; seen {
				continue
			}
			visited[p.Label.String()] = p
			next = append(next, p)
		}
		frontier = next
	}

	out := make([]*target.Target, 0, len(visited))
	for _, t := range visited {
		out = append(out, t)
	}
	return cb(out)
}

func (r *RDeps) String() string {
	return "rdeps(" + r.Universe.String() + ", " + r.Operand.String() + ")"
}

// AllRDeps evaluates allrdeps(operand) — an rdeps(universe_scope, ...)
// whose universe is implicitly the whole loaded universe, computed
// without recomputing universe membership.
type AllRDeps struct {
	Operand  Expression
	MaxDepth int
}

func (a *AllRDeps) Eval(ctx context.Context, env Env, cb Callback) error {
	seeds, err := collect(ctx, env, a.Operand)
	if err != nil {
		return err
	}
	out, err := env.AllRDeps(ctx, seeds, a.MaxDepth)
	if err != nil {
		return err
	}
	return cb(out)
}

func (a *AllRDeps) String() string { return "allrdeps(" + a.Operand.String() + ")" }

// RBuildFiles evaluates rbuildfiles(paths...).
type RBuildFiles struct {
	Paths []string
}

func (r *RBuildFiles) Eval(ctx context.Context, env Env, cb Callback) error {
	return env.RBuildFiles(ctx, r.Paths, func(batch []*target.Target) error {
		return cb(batch)
	})
}

func (r *RBuildFiles) String() string { return "rbuildfiles(...)" }

// Union evaluates operand1 + operand2 (set union).
type Union struct{ Left, Right Expression }

func (u *Union) Eval(ctx context.Context, env Env, cb Callback) error {
	left, err := collect(ctx, env, u.Left)
	if err != nil {
		return err
	}
	right, err := collect(ctx, env, u.Right)
	if err != nil {
		return err
	}
	seen := map[string]bool{}
	var out []*target.Target
	for _, t := range append(left, right...) {
		if !seen[t.Label.String()] {
			seen[t.Label.String()] = true
			out = append(out, t)
		}
	}
	return cb(out)
}

func (u *Union) String() string { return u.Left.String() + " + " + u.Right.String() }

// Intersect evaluates operand1 ^ operand2 (set intersection).
type Intersect struct{ Left, Right Expression }

func (i *Intersect) Eval(ctx context.Context, env Env, cb Callback) error {
	left, err := collect(ctx, env, i.Left)
	if err != nil {
		return err
	}
	right, err := collect(ctx, env, i.Right)
	if err != nil {
		return err
	}
	rightSet := map[string]bool{}
	for _, t := range right {
		rightSet[t.Label.String()] = true
	}
	var out []*target.Target
	for _, t := range left {
		if rightSet[t.Label.String()] {
			out = append(out, t)
		}
	}
	return cb(out)
}

func (i *Intersect) String() string { return i.Left.String() + " ^ " + i.Right.String() }

// Except evaluates operand1 - operand2 (set difference).
type Except struct{ Left, Right Expression }

func (e *Except) Eval(ctx context.Context, env Env, cb Callback) error {
	left, err := collect(ctx, env, e.Left)
	if err != nil {
		return err
	}
	right, err := collect(ctx, env, e.Right)
	if err != nil {
		return err
	}
	rightSet := map[string]bool{}
	for _, t := range right {
		rightSet[t.Label.String()] = true
	}
	var out []*target.Target
	for _, t := range left {
		if !rightSet[t.Label.String()] {
			out = append(out, t)
		}
	}
	return cb(out)
}

func (e *Except) String() string { return e.Left.String() + " - " + e.Right.String() }

// collect drains an Expression into a single slice. Used by operators
// that need their operand's full result set before proceeding (e.g. to
// seed a closure); leaf streaming still happens via Callback for the
// top-level expression.
func collect(ctx context.Context, env Env, e Expression) ([]*target.Target, error) {
	var out []*target.Target
	err := e.Eval(ctx, env, func(batch []*target.Target) error {
		out = append(out, batch...)
		return nil
	})
	return out, err
}
