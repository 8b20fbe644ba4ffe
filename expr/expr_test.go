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

package expr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
)

// fakeEnv resolves TargetLiteral patterns against a fixed package
// table and computes fwd/reverse deps from a fixed edge map, entirely
// in memory: no graph collaborator involved.
type fakeEnv struct {
	targets map[string]*target.Target // pattern -> single target
	fwd     map[string][]string       // label -> direct dep labels
	rev     map[string][]string       // label -> direct parent labels
	all     []*target.Target
}

func t(name string) *target.Target {
	return &target.Target{Label: label.Label{PkgPath: "a", Name: name}}
}

func newFakeEnv() *fakeEnv {
	names := []string{"x", "y", "z", "w"}
	targets := map[string]*target.Target{}
	var all []*target.Target
	for _, n := range names {
		tg := t(n)
		targets["//a:"+n] = tg
		all = append(all, tg)
	}
	return &fakeEnv{
		targets: targets,
		fwd: map[string][]string{
			"//a:x": {"//a:y"},
			"//a:y": {"//a:z"},
		},
		rev: map[string][]string{
			"//a:z": {"//a:y"},
			"//a:y": {"//a:x"},
		},
		all: all,
	}
}

func (f *fakeEnv) byLabel(l string) *target.Target { return f.targets[l] }

func (f *fakeEnv) FwdDeps(ctx context.Context, targets []*target.Target) ([]*target.Target, error) {
	var out []*target.Target
	for _, src := range targets {
		for _, l := range f.fwd[src.Label.String()] {
			out = append(out, f.byLabel(l))
		}
	}
	return out, nil
}

func (f *fakeEnv) ReverseDeps(ctx context.Context, targets []*target.Target) ([]*target.Target, error) {
	var out []*target.Target
	for _, src := range targets {
		for _, l := range f.rev[src.Label.String()] {
			out = append(out, f.byLabel(l))
		}
	}
	return out, nil
}

func (f *fakeEnv) TransitiveClosure(ctx context.Context, seeds []*target.Target) ([]*target.Target, error) {
	visited := map[string]*target.Target{}
	var frontier []*target.Target
	for _, s := range seeds {
		if _, ok := visited[s.Label.String()]; !ok {
			visited[s.Label.String()] = s
			frontier = append(frontier, s)
		}
	}
	for len(frontier) > 0 {
		next, err := f.FwdDeps(ctx, frontier)
		if err != nil {
			return nil, err
		}
		var newFrontier []*target.Target
		for _, n := range next {
			if _, ok := visited[n.Label.String()]; !ok {
				visited[n.Label.String()] = n
				newFrontier = append(newFrontier, n)
			}
		}
		frontier = newFrontier
	}
	out := make([]*target.Target, 0, len(visited))
	for _, v := range visited {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEnv) AllRDeps(ctx context.Context, targets []*target.Target, maxDepth int) ([]*target.Target, error) {
	visited := map[string]*target.Target{}
	for _, tg := range targets {
		visited[tg.Label.String()] = tg
	}
	frontier := targets
	for depth := 0; maxDepth <= 0 || depth < maxDepth; depth++ {
		if len(frontier) == 0 {
			break
		}
		parents, err := f.ReverseDeps(ctx, frontier)
		if err != nil {
			return nil, err
		}
		var next []*target.Target
		for _, p := range parents {
			if _, ok := visited[p.Label.String()]; !ok {
				visited[p.Label.String()] = p
				next = append(next, p)
			}
		}
		frontier = next
	}
	out := make([]*target.Target, 0, len(visited))
	for _, v := range visited {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEnv) TargetsMatchingPattern(ctx context.Context, pattern string, cb func([]*target.Target) error) error {
	if tg, ok := f.targets[pattern]; ok {
		return cb([]*target.Target{tg})
	}
	if pattern == "//a/..." {
		return cb(f.all)
	}
	return cb(nil)
}

func (f *fakeEnv) RBuildFiles(ctx context.Context, paths []string, cb func([]*target.Target) error) error {
	return cb([]*target.Target{{Label: label.Label{PkgPath: "a", Name: "BUILD"}}})
}

func (f *fakeEnv) UniverseScope() []string { return []string{"//a/..."} }

func names(ts []*target.Target) []string {
	out := make([]string, len(ts))
	for i, tg := range ts {
		out[i] = tg.Label.Name
	}
	return out
}

func TestTargetLiteralEvalResolvesPattern(t *testing.T) {
	env := newFakeEnv()
	lit := &TargetLiteral{Pattern: "//a:x"}
	out, err := collect(context.Background(), env, lit)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x"}, names(out))
	assert.Equal(t, "//a:x", lit.String())
}

func TestDepsEvalComputesTransitiveClosure(t *testing.T) {
	env := newFakeEnv()
	d := &Deps{Operand: &TargetLiteral{Pattern: "//a:x"}}
	out, err := collect(context.Background(), env, d)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, names(out))
	assert.Equal(t, "deps(//a:x)", d.String())
}

func TestRDepsEvalCollectsAllAncestorsInUniverse(t *testing.T) {
	env := newFakeEnv()
	r := &RDeps{Universe: &TargetLiteral{Pattern: "//a/..."}, Operand: &TargetLiteral{Pattern: "//a:z"}}
	out, err := collect(context.Background(), env, r)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, names(out))
}

func TestRDepsEvalHonorsMaxDepth(t *testing.T) {
	env := newFakeEnv()
	r := &RDeps{Universe: &TargetLiteral{Pattern: "//a/..."}, Operand: &TargetLiteral{Pattern: "//a:z"}, MaxDepth: 1}
	out, err := collect(context.Background(), env, r)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"y", "z"}, names(out))
}

func TestAllRDepsEvalDelegatesToEnv(t *testing.T) {
	env := newFakeEnv()
	a := &AllRDeps{Operand: &TargetLiteral{Pattern: "//a:z"}}
	out, err := collect(context.Background(), env, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, names(out))
	assert.Equal(t, "allrdeps(//a:z)", a.String())
}

func TestRBuildFilesEvalDelegatesToEnv(t *testing.T) {
	env := newFakeEnv()
	rb := &RBuildFiles{Paths: []string{"a/BUILD"}}
	out, err := collect(context.Background(), env, rb)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "BUILD", out[0].Label.Name)
}

func TestUnionDeduplicatesByLabel(t *testing.T) {
	env := newFakeEnv()
	u := &Union{Left: &TargetLiteral{Pattern: "//a:x"}, Right: &TargetLiteral{Pattern: "//a:x"}}
	out, err := collect(context.Background(), env, u)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "//a:x + //a:x", u.String())
}

func TestIntersectKeepsOnlyCommonLabels(t *testing.T) {
	env := newFakeEnv()
	i := &Intersect{
		Left:  &Deps{Operand: &TargetLiteral{Pattern: "//a:x"}},
		Right: &TargetLiteral{Pattern: "//a:y"},
	}
	out, err := collect(context.Background(), env, i)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"y"}, names(out))
}

func TestExceptDropsLabelsInRight(t *testing.T) {
	env := newFakeEnv()
	e := &Except{
		Left:  &Deps{Operand: &TargetLiteral{Pattern: "//a:x"}},
		Right: &TargetLiteral{Pattern: "//a:y"},
	}
	out, err := collect(context.Background(), env, e)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "z"}, names(out))
}

func TestGetFunctionsIncludesBaseAndEngineNames(t *testing.T) {
	fns := GetFunctions()
	var got []string
	for _, f := range fns {
		got = append(got, f.Name)
	}
	assert.Contains(t, got, "deps")
	assert.Contains(t, got, "rdeps")
	assert.Contains(t, got, "allrdeps")
	assert.Contains(t, got, "rbuildfiles")
}
