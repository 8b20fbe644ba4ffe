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

// Package label defines the identifiers the query engine uses to name
// targets and packages: Label and PackageID.
package label

import (
	"cmp"
	"fmt"
)

// PackageID identifies a package: a repository plus a slash-separated
// package path within it. The main repository has an empty Repository.
type PackageID struct {
	Repository string
	PkgPath    string
}

func (p PackageID) String() string {
	if p.Repository == "" {
		return "//" + p.PkgPath
	}
	return "@" + p.Repository + "//" + p.PkgPath
}

// Compare gives PackageID a total, lexical order.
func (p PackageID) Compare(o PackageID) int {
	if c := cmp.Compare(p.Repository, o.Repository); c != 0 {
		return c
	}
	return cmp.Compare(p.PkgPath, o.PkgPath)
}

// Label is the unique identifier of a Target within a universe: a
// repository, a package path, and a target name. Totally ordered by
// lexical comparison of its components.
type Label struct {
	Repository string
	PkgPath    string
	Name       string
}

// Package returns the identifier of the package this label belongs to.
func (l Label) Package() PackageID {
	return PackageID{Repository: l.Repository, PkgPath: l.PkgPath}
}

func (l Label) String() string {
	return fmt.Sprintf("%s:%s", l.Package().String(), l.Name)
}

// Compare gives Label a total, lexical order over (Repository, PkgPath, Name).
func (l Label) Compare(o Label) int {
	if c := cmp.Compare(l.Repository, o.Repository); c != 0 {
		return c
	}
	if c := cmp.Compare(l.PkgPath, o.PkgPath); c != 0 {
		return c
	}
	return cmp.Compare(l.Name, o.Name)
}

// Less reports whether l sorts before o under Compare.
func (l Label) Less(o Label) bool {
	return l.Compare(o) < 0
}
