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

package depquery

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	luciErrors "go.chromium.org/luci/common/errors"

	"go.chromium.org/luci/common/data/stringset"

	"github.com/rieckegino/depquery/events"
	"github.com/rieckegino/depquery/expr"
	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/internal/adapter"
	"github.com/rieckegino/depquery/internal/fakegraph"
	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
	"github.com/rieckegino/depquery/walkgraph"
)

// chainEvaluator is a minimal patternresolver.Evaluator standing in for
// real pattern parsing: it understands an exact label (`//pkg:name`)
// and a recursive package wildcard (`//pkg/...`).
type chainEvaluator struct {
	packages map[string]*target.Package
}

func (m *chainEvaluator) Eval(ctx context.Context, pattern string, excludes stringset.Set, cb func([]*target.Target) error) error {
	pattern = strings.TrimPrefix(pattern, "//")
	if strings.HasSuffix(pattern, "/...") {
		prefix := strings.TrimSuffix(pattern, "/...")
		var batch []*target.Target
		for pkgPath, pkg := range m.packages {
			if !strings.HasPrefix(pkgPath, prefix) || excludes.Has(pkgPath) {
				continue
			}
			for _, t := range pkg.Targets {
				batch = append(batch, t)
			}
		}
		return cb(batch)
	}
	idx := strings.LastIndex(pattern, ":")
	if idx < 0 {
		return nil
	}
	pkgPath, name := pattern[:idx], pattern[idx+1:]
	if excludes.Has(pkgPath) {
		return nil
	}
	pkg, ok := m.packages[pkgPath]
	if !ok {
		return nil
	}
	t, ok := pkg.Target(name)
	if !ok {
		return nil
	}
	return cb([]*target.Target{t})
}

// buildChainFixture seeds //a:x -> //a:y -> //a:z, plus a target-less
// package //broken marked ContainsErrors, against universe scope //a/....
func buildChainFixture(t *testing.T) (*fakegraph.Factory, *chainEvaluator) {
	t.Helper()
	mk := func(name string) label.Label { return label.Label{PkgPath: "a", Name: name} }

	x := &target.Target{Label: mk("x"), Kind: target.KindRule, Rule: &target.RuleData{
		RuleClass: "demo_rule",
		Attrs:     []target.AttrEdge{{Attr: "deps", Label: mk("y"), Class: target.EdgeNormal}},
	}}
	y := &target.Target{Label: mk("y"), Kind: target.KindRule, Rule: &target.RuleData{
		RuleClass: "demo_rule",
		Attrs:     []target.AttrEdge{{Attr: "deps", Label: mk("z"), Class: target.EdgeNormal}},
	}}
	z := &target.Target{Label: mk("z"), Kind: target.KindRule, Rule: &target.RuleData{RuleClass: "demo_rule"}}

	pkg := &target.Package{
		ID:        label.PackageID{PkgPath: "a"},
		BuildFile: mk("BUILD"),
		Targets:   map[string]*target.Target{"x": x, "y": y, "z": z},
	}

	brokenPkg := &target.Package{
		ID:             label.PackageID{PkgPath: "broken"},
		BuildFile:      label.Label{PkgPath: "broken", Name: "BUILD"},
		ContainsErrors: true,
		Targets:        map[string]*target.Target{},
	}

	b := fakegraph.NewBuilder()
	for _, p := range []*target.Package{pkg, brokenPkg} {
		b.AddValue(graphkey.PackageKey{Package: p.ID}, p)
		for _, tg := range p.Targets {
			tk := adapter.TraversalKey(tg.Label)
			b.AddValue(tk, &walkgraph.TransitiveTraversalValue{})
			if tg.IsRule() {
				for _, e := range tg.Rule.Attrs {
					b.AddEdge(tk, adapter.TraversalKey(e.Label))
				}
			}
		}
	}
	b.SetBlacklist([]string{"//a/..."}, "", nil)

	graph, err := b.Build(context.Background(), fakegraph.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { graph.Close() })

	factory := fakegraph.NewFactory(graph, false)
	evaluator := &chainEvaluator{packages: map[string]*target.Package{"a": pkg, "broken": brokenPkg}}
	return factory, evaluator
}

func testConfig() Config {
	return Config{
		KeepGoing:           true,
		LoadingPhaseThreads: 2,
		DependencyFilter:    target.AllDeps,
		UniverseScope:       []string{"//a/..."},
	}
}

func TestEvaluateDepsReturnsTransitiveClosure(t *testing.T) {
	factory, evaluator := buildChainFixture(t)
	env, err := New(testConfig(), factory, evaluator)
	require.NoError(t, err)

	var got []string
	sink := events.NewCollectingHandler(context.Background())
	result, err := env.Evaluate(context.Background(), &expr.Deps{Operand: &expr.TargetLiteral{Pattern: "//a:x"}}, sink,
		func(batch []*target.Target) error {
			for _, t := range batch {
				got = append(got, t.Label.String())
			}
			return nil
		})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Empty)
	assert.ElementsMatch(t, []string{"//a:x", "//a:y", "//a:z"}, got)
}

func TestEvaluateRDepsReturnsAncestors(t *testing.T) {
	factory, evaluator := buildChainFixture(t)
	env, err := New(testConfig(), factory, evaluator)
	require.NoError(t, err)

	var got []string
	sink := events.NewCollectingHandler(context.Background())
	_, err = env.Evaluate(context.Background(), &expr.RDeps{Universe: &expr.TargetLiteral{Pattern: "//a/..."}, Operand: &expr.TargetLiteral{Pattern: "//a:z"}}, sink,
		func(batch []*target.Target) error {
			for _, t := range batch {
				got = append(got, t.Label.String())
			}
			return nil
		})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"//a:x", "//a:y", "//a:z"}, got)
}

func TestEvaluateReentryIsRejected(t *testing.T) {
	factory, evaluator := buildChainFixture(t)
	env, err := New(testConfig(), factory, evaluator)
	require.NoError(t, err)

	sink := events.NewCollectingHandler(context.Background())
	noop := func([]*target.Target) error { return nil }
	_, err = env.Evaluate(context.Background(), &expr.TargetLiteral{Pattern: "//a:x"}, sink, noop)
	require.NoError(t, err)

	_, err = env.Evaluate(context.Background(), &expr.TargetLiteral{Pattern: "//a:x"}, sink, noop)
	assert.Same(t, ErrEvaluationReentered, err)
}

func TestGetTargetNotFound(t *testing.T) {
	factory, evaluator := buildChainFixture(t)
	env, err := New(testConfig(), factory, evaluator)
	require.NoError(t, err)

	sink := events.NewCollectingHandler(context.Background())
	_, err = env.Evaluate(context.Background(), &expr.TargetLiteral{Pattern: "//a:x"}, sink, func([]*target.Target) error { return nil })
	require.NoError(t, err)

	_, err = env.GetTarget(context.Background(), label.Label{PkgPath: "a", Name: "nope"})
	require.Error(t, err)
	assert.True(t, luciErrors.Contains(err, ErrTargetNotFound))
}

func TestGetTargetPackageContainsErrors(t *testing.T) {
	factory, evaluator := buildChainFixture(t)
	env, err := New(testConfig(), factory, evaluator)
	require.NoError(t, err)

	sink := events.NewCollectingHandler(context.Background())
	_, err = env.Evaluate(context.Background(), &expr.TargetLiteral{Pattern: "//a:x"}, sink, func([]*target.Target) error { return nil })
	require.NoError(t, err)

	_, err = env.GetTarget(context.Background(), label.Label{PkgPath: "broken", Name: "whatever"})
	require.Error(t, err)
	assert.True(t, luciErrors.Contains(err, ErrPackageContainsErrors))
}

func TestMethodsBeforeEvaluateAreRejected(t *testing.T) {
	factory, evaluator := buildChainFixture(t)
	env, err := New(testConfig(), factory, evaluator)
	require.NoError(t, err)

	_, err = env.GetTarget(context.Background(), label.Label{PkgPath: "a", Name: "x"})
	assert.Error(t, err)
}

func TestFunctionsIncludesEngineAndExtraNames(t *testing.T) {
	factory, evaluator := buildChainFixture(t)
	cfg := testConfig()
	cfg.ExtraFunctions = []expr.Function{{Name: "genquery", Arity: 1}}
	env, err := New(cfg, factory, evaluator)
	require.NoError(t, err)

	var got []string
	for _, f := range env.Functions() {
		got = append(got, f.Name)
	}
	assert.Contains(t, got, "allrdeps")
	assert.Contains(t, got, "rbuildfiles")
	assert.Contains(t, got, "genquery")
}

func TestKeepGoingFalseSurfacesQueryFailed(t *testing.T) {
	factory, evaluator := buildChainFixture(t)
	cfg := testConfig()
	cfg.KeepGoing = false
	env, err := New(cfg, factory, evaluator)
	require.NoError(t, err)

	sink := events.NewCollectingHandler(context.Background())
	_, err = env.Evaluate(context.Background(), &expr.TargetLiteral{Pattern: "//a:x"}, sink, func([]*target.Target) error {
		sink.Handle(events.Event{Severity: events.Error, Message: "simulated loading failure"})
		return nil
	})
	require.Error(t, err)
	assert.True(t, luciErrors.Contains(err, ErrQueryFailed))
}

func TestConfigValidateRejectsEmptyUniverse(t *testing.T) {
	cfg := testConfig()
	cfg.UniverseScope = nil
	assert.Error(t, cfg.Validate())
}
