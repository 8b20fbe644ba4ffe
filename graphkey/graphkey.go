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

// Package graphkey defines GraphKey, the opaque tagged identifier the
// walkable graph is keyed by.
//
// The core engine never branches on anything but a key's Kind; it treats
// the rest of a key as an address to hand back to the graph collaborator.
// That's modeled here as a small closed interface over comparable struct
// types rather than a type switch on concrete structs, so new key shapes
// can be added without widening every switch statement that only cares
// about the tag.
package graphkey

import (
	"fmt"

	"github.com/rieckegino/depquery/label"
)

// Kind is the tag of a GraphKey.
type Kind int

const (
	// KindTransitiveTraversal keys a target's loading/evaluation outcome.
	KindTransitiveTraversal Kind = iota
	// KindPackage keys a Package value.
	KindPackage
	// KindPackageLookup keys the "does this directory hold a package" answer.
	KindPackageLookup
	// KindFile keys a single file's existence/identity in the graph.
	KindFile
	// KindBlacklistPrefixes keys the universe's blacklisted package-path
	// prefixes; there is exactly one instance of this key per universe.
	KindBlacklistPrefixes
)

func (k Kind) String() string {
	switch k {
	case KindTransitiveTraversal:
		return "TransitiveTraversal"
	case KindPackage:
		return "Package"
	case KindPackageLookup:
		return "PackageLookup"
	case KindFile:
		return "File"
	case KindBlacklistPrefixes:
		return "BlacklistPrefixes"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// GraphKey is an opaque, comparable identifier for a node in the walkable
// graph. It is safe to use as a map key.
type GraphKey interface {
	Kind() Kind
	String() string
}

// TransitiveTraversalKey keys a target's loading outcome.
type TransitiveTraversalKey struct {
	Label label.Label
}

func (k TransitiveTraversalKey) Kind() Kind { return KindTransitiveTraversal }
func (k TransitiveTraversalKey) String() string {
	return "TransitiveTraversal(" + k.Label.String() + ")"
}

// PackageKey keys a Package value.
type PackageKey struct {
	Package label.PackageID
}

func (k PackageKey) Kind() Kind      { return KindPackage }
func (k PackageKey) String() string  { return "Package(" + k.Package.String() + ")" }

// PackageLookupKey keys a package-existence lookup for a directory.
type PackageLookupKey struct {
	Package label.PackageID
}

func (k PackageLookupKey) Kind() Kind     { return KindPackageLookup }
func (k PackageLookupKey) String() string { return "PackageLookup(" + k.Package.String() + ")" }

// RootedPath is a filesystem path expressed relative to one of the source
// roots the graph was built from. It is comparable, so a File key built
// from it is usable as a map key.
type RootedPath struct {
	Root string
	Path string
}

func (p RootedPath) String() string {
	if p.Root == "" {
		return p.Path
	}
	return p.Root + "/" + p.Path
}

// Parent returns the RootedPath one directory up, and false if Path is
// already empty (the root itself).
func (p RootedPath) Parent() (RootedPath, bool) {
	if p.Path == "" {
		return RootedPath{}, false
	}
	idx := lastSlash(p.Path)
	if idx < 0 {
		return RootedPath{Root: p.Root}, true
	}
	return RootedPath{Root: p.Root, Path: p.Path[:idx]}, true
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// FileKey keys a single file's identity in the graph.
type FileKey struct {
	Path RootedPath
}

func (k FileKey) Kind() Kind     { return KindFile }
func (k FileKey) String() string { return "File(" + k.Path.String() + ")" }

// BlacklistPrefixesKey keys the universe's blacklisted package-path
// prefixes. There is exactly one meaningful instance, but it still
// carries a Universe tag so distinct universes (were this engine ever
// reused across them, which it is not) don't collide.
type BlacklistPrefixesKey struct {
	Universe string
}

func (k BlacklistPrefixesKey) Kind() Kind     { return KindBlacklistPrefixes }
func (k BlacklistPrefixesKey) String() string { return "BlacklistPrefixes(" + k.Universe + ")" }
