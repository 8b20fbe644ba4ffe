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

// Optimize rewrites every rdeps(<literal>, T, ...) where <literal>
// equals universeScope (a single-pattern universe) into allrdeps(T, ...).
// The comparison is an exact string match: neither side is absolutized,
// so a relative spelling of the universe pattern is not rewritten. The
// rewritten allrdeps uses an undirected universe-wide reverse walk and
// avoids recomputing universe membership. Implemented as a
// visitor over the expression tree. When the universe has more than one
// element, the rewrite is skipped entirely.
func Optimize(e Expression, universeScope []string) Expression {
	if len(universeScope) != 1 {
		return e
	}
	return rewrite(e, universeScope[0])
}

func rewrite(e Expression, universeLiteral string) Expression {
	switch v := e.(type) {
	case *RDeps:
		universe := rewrite(v.Universe, universeLiteral)
		operand := rewrite(v.Operand, universeLiteral)
		if lit, ok := universe.(*TargetLiteral); ok && lit.Pattern == universeLiteral {
			return &AllRDeps{Operand: operand, MaxDepth: v.MaxDepth}
		}
		return &RDeps{Universe: universe, Operand: operand, MaxDepth: v.MaxDepth}
	case *Deps:
		return &Deps{Operand: rewrite(v.Operand, universeLiteral)}
	case *AllRDeps:
		return &AllRDeps{Operand: rewrite(v.Operand, universeLiteral), MaxDepth: v.MaxDepth}
	case *Union:
		return &Union{Left: rewrite(v.Left, universeLiteral), Right: rewrite(v.Right, universeLiteral)}
	case *Intersect:
		return &Intersect{Left: rewrite(v.Left, universeLiteral), Right: rewrite(v.Right, universeLiteral)}
	case *Except:
		return &Except{Left: rewrite(v.Left, universeLiteral), Right: rewrite(v.Right, universeLiteral)}
	default:
		// TargetLiteral and RBuildFiles have no sub-expressions to
		// recurse into.
		return e
	}
}
