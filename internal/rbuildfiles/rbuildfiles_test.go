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

package rbuildfiles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/internal/adapter"
	"github.com/rieckegino/depquery/internal/fakegraph"
	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
	"github.com/rieckegino/depquery/walkgraph"
)

func TestCandidateLookupKeysWorkspaceSpecialCase(t *testing.T) {
	keys := candidateLookupKeys(graphkey.RootedPath{Root: "r", Path: workspaceFile})
	assert.Equal(t, []graphkey.PackageLookupKey{
		{Package: ExternalRepoPackage},
		{Package: label.PackageID{Repository: "r", PkgPath: ""}},
	}, keys)
}

func TestCandidateLookupKeysOrdinaryFile(t *testing.T) {
	keys := candidateLookupKeys(graphkey.RootedPath{Root: "", Path: "pkg/sub/a.go"})
	require.Len(t, keys, 1)
	assert.Equal(t, label.PackageID{PkgPath: "pkg/sub"}, keys[0].Package)
}

func TestCandidateLookupKeysAtTreeRootReturnsNil(t *testing.T) {
	assert.Nil(t, candidateLookupKeys(graphkey.RootedPath{Root: "", Path: ""}))
}

func TestGetRBuildFilesWalksFromFileToDependingPackage(t *testing.T) {
	ctx := context.Background()
	fileKey := graphkey.FileKey{Path: graphkey.RootedPath{Root: "", Path: "pkg/BUILD"}}
	lookupKey := graphkey.PackageLookupKey{Package: label.PackageID{PkgPath: "pkg"}}
	depPkgKey := graphkey.PackageKey{Package: label.PackageID{PkgPath: "dep"}}

	b := fakegraph.NewBuilder()
	b.AddValue(lookupKey, &walkgraph.PackageLookupValue{PackageExists: true, Root: ""})
	b.AddValue(fileKey, &walkgraph.TransitiveTraversalValue{})
	b.AddEdge(depPkgKey, fileKey)
	depPkg := &target.Package{
		ID:        label.PackageID{PkgPath: "dep"},
		BuildFile: label.Label{PkgPath: "dep", Name: "BUILD"},
	}
	b.AddValue(depPkgKey, depPkg)

	graph, err := b.Build(ctx, fakegraph.Config{InMemory: true})
	require.NoError(t, err)
	defer graph.Close()

	e := New(adapter.New(graph), 100)

	var emitted []*target.Target
	err = e.GetRBuildFiles(ctx, []graphkey.RootedPath{{Root: "", Path: "pkg/BUILD"}}, func(batch []*target.Target) error {
		emitted = append(emitted, batch...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, depPkg.BuildFile, emitted[0].Label)
}

func TestGetRBuildFilesDropsPackagesThatContainErrors(t *testing.T) {
	ctx := context.Background()
	fileKey := graphkey.FileKey{Path: graphkey.RootedPath{Root: "", Path: "pkg/BUILD"}}
	lookupKey := graphkey.PackageLookupKey{Package: label.PackageID{PkgPath: "pkg"}}
	brokenPkgKey := graphkey.PackageKey{Package: label.PackageID{PkgPath: "broken"}}

	b := fakegraph.NewBuilder()
	b.AddValue(lookupKey, &walkgraph.PackageLookupValue{PackageExists: true, Root: ""})
	b.AddValue(fileKey, &walkgraph.TransitiveTraversalValue{})
	b.AddEdge(brokenPkgKey, fileKey)
	b.AddValue(brokenPkgKey, &target.Package{
		ID:             label.PackageID{PkgPath: "broken"},
		BuildFile:      label.Label{PkgPath: "broken", Name: "BUILD"},
		ContainsErrors: true,
	})

	graph, err := b.Build(ctx, fakegraph.Config{InMemory: true})
	require.NoError(t, err)
	defer graph.Close()

	e := New(adapter.New(graph), 100)

	var emitted []*target.Target
	err = e.GetRBuildFiles(ctx, []graphkey.RootedPath{{Root: "", Path: "pkg/BUILD"}}, func(batch []*target.Target) error {
		emitted = append(emitted, batch...)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, emitted)
}

func TestGetRBuildFilesContinuesThroughExternalRepoSentinel(t *testing.T) {
	ctx := context.Background()
	fileKey := graphkey.FileKey{Path: graphkey.RootedPath{Root: "", Path: "pkg/BUILD"}}
	lookupKey := graphkey.PackageLookupKey{Package: label.PackageID{PkgPath: "pkg"}}
	externalKey := graphkey.PackageKey{Package: ExternalRepoPackage}
	downstreamKey := graphkey.PackageKey{Package: label.PackageID{PkgPath: "downstream"}}

	b := fakegraph.NewBuilder()
	b.AddValue(lookupKey, &walkgraph.PackageLookupValue{PackageExists: true, Root: ""})
	b.AddValue(fileKey, &walkgraph.TransitiveTraversalValue{})
	b.AddEdge(externalKey, fileKey)
	b.AddEdge(downstreamKey, externalKey)
	b.AddValue(externalKey, &target.Package{ID: ExternalRepoPackage, BuildFile: label.Label{Name: "BUILD"}})
	b.AddValue(downstreamKey, &target.Package{
		ID:        label.PackageID{PkgPath: "downstream"},
		BuildFile: label.Label{PkgPath: "downstream", Name: "BUILD"},
	})

	graph, err := b.Build(ctx, fakegraph.Config{InMemory: true})
	require.NoError(t, err)
	defer graph.Close()

	e := New(adapter.New(graph), 100)

	var names []string
	err = e.GetRBuildFiles(ctx, []graphkey.RootedPath{{Root: "", Path: "pkg/BUILD"}}, func(batch []*target.Target) error {
		for _, t := range batch {
			names = append(names, t.Label.PkgPath)
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"", "downstream"}, names)
}
