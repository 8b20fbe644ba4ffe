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
	"context"
	"strings"

	"go.chromium.org/luci/common/data/stringset"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/internal/adapter"
	"github.com/rieckegino/depquery/internal/fakegraph"
	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
	"github.com/rieckegino/depquery/walkgraph"
)

// demoFixture builds the seed graph this CLI ships with: a small chain
// (`//a:x -> //a:y -> //a:z`, plus a raw graph edge from `//a:x` to
// `//a:hidden` that the dependency filter prunes), alongside a second
// package `//b` that loads the same extension file as `//a`.
func demoFixture() (*fakegraph.Builder, []*target.Package) {
	mk := func(pkgPath, name string) label.Label {
		return label.Label{PkgPath: pkgPath, Name: name}
	}

	x := &target.Target{Label: mk("a", "x"), Kind: target.KindRule, Rule: &target.RuleData{
		RuleClass: "demo_rule",
		Attrs: []target.AttrEdge{
			{Attr: "deps", Label: mk("a", "y"), Class: target.EdgeNormal},
		},
		VisibilityDeps: []label.Label{{PkgPath: "vis", Name: "all"}},
	}}
	y := &target.Target{Label: mk("a", "y"), Kind: target.KindRule, Rule: &target.RuleData{
		RuleClass: "demo_rule",
		Attrs:     []target.AttrEdge{{Attr: "deps", Label: mk("a", "z"), Class: target.EdgeNormal}},
	}}
	z := &target.Target{Label: mk("a", "z"), Kind: target.KindRule, Rule: &target.RuleData{RuleClass: "demo_rule"}}
	hidden := &target.Target{Label: mk("a", "hidden"), Kind: target.KindRule, Rule: &target.RuleData{RuleClass: "demo_rule"}}
	aExt := mk("a", "ext.bzl")

	pkgA := &target.Package{
		ID:              label.PackageID{PkgPath: "a"},
		BuildFile:       mk("a", "BUILD"),
		ExtensionLabels: []label.Label{aExt},
		Targets: map[string]*target.Target{
			"x":      x,
			"y":      y,
			"z":      z,
			"hidden": hidden,
		},
	}

	bY := &target.Target{Label: mk("b", "y"), Kind: target.KindRule, Rule: &target.RuleData{RuleClass: "demo_rule"}}
	pkgB := &target.Package{
		ID:              label.PackageID{PkgPath: "b"},
		BuildFile:       mk("b", "BUILD"),
		ExtensionLabels: []label.Label{aExt},
		Targets: map[string]*target.Target{
			"y": bY,
		},
	}

	packages := []*target.Package{pkgA, pkgB}

	b := fakegraph.NewBuilder()
	for _, pkg := range packages {
		b.AddValue(graphkey.PackageKey{Package: pkg.ID}, pkg)
		b.AddValue(graphkey.PackageLookupKey{Package: pkg.ID}, &walkgraph.PackageLookupValue{PackageExists: true})
		for _, t := range pkg.Targets {
			tk := adapter.TraversalKey(t.Label)
			b.AddValue(tk, &walkgraph.TransitiveTraversalValue{})
			if t.IsRule() {
				for _, e := range t.Rule.Attrs {
					b.AddEdge(tk, adapter.TraversalKey(e.Label))
				}
			}
		}
		buildPath := graphkey.RootedPath{Path: pkg.ID.PkgPath + "/BUILD"}
		b.AddEdge(graphkey.FileKey{Path: buildPath}, graphkey.PackageLookupKey{Package: pkg.ID})
		b.AddEdge(graphkey.PackageLookupKey{Package: pkg.ID}, graphkey.PackageKey{Package: pkg.ID})
	}

	// The raw graph edge x -> hidden is not among x's allowed labels
	// (its attribute deps and visibility), so the edge filter drops it.
	b.AddEdge(adapter.TraversalKey(x.Label), adapter.TraversalKey(hidden.Label))

	b.SetBlacklist([]string{"//a/...", "//b/..."}, "", nil)

	return b, packages
}

// memEvaluator is a minimal TargetPatternEvaluator standing in for real
// pattern parsing, which is out of this engine's scope: it understands
// an exact label (`//pkg:name`) and a recursive package wildcard
// (`//pkg/...`), nothing more.
type memEvaluator struct {
	packages map[string]*target.Package
}

func newMemEvaluator(pkgs []*target.Package) *memEvaluator {
	m := &memEvaluator{packages: map[string]*target.Package{}}
	for _, p := range pkgs {
		m.packages[p.ID.PkgPath] = p
	}
	return m
}

func (m *memEvaluator) Eval(ctx context.Context, pattern string, excludes stringset.Set, cb func([]*target.Target) error) error {
	pattern = strings.TrimPrefix(pattern, "//")

	if strings.HasSuffix(pattern, "/...") {
		prefix := strings.TrimSuffix(pattern, "/...")
		var batch []*target.Target
		for pkgPath, pkg := range m.packages {
			if !strings.HasPrefix(pkgPath, prefix) {
				continue
			}
			if excludes.Has(pkgPath) {
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
