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

// Package depfilter implements the Edge Filter: for a
// rule target, the allowed outgoing label set used to prune raw forward
// edges before they reach a query result.
package depfilter

import (
	"go.chromium.org/luci/common/data/stringset"

	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
)

// AllowedLabels returns the union of a rule's filtered attribute
// transitions, its visibility dependency labels, and its aspect-label
// superset. For non-rule targets, every edge is allowed —
// callers should not call this for non-rules; use AllowedLabelsFor to
// get that behavior automatically.
func AllowedLabels(rule *target.RuleData, filter target.DependencyFilter) stringset.Set {
	set := stringset.New(len(rule.Attrs) + len(rule.VisibilityDeps) + len(rule.AspectLabels))
	for _, l := range rule.Transitions(filter) {
		set.Add(l.String())
	}
	for _, l := range rule.VisibilityDeps {
		set.Add(l.String())
	}
	for _, l := range rule.AspectLabelsSuperset(filter) {
		set.Add(l.String())
	}
	return set
}

// AllowedLabelsFor returns the allowed outgoing label set for t under
// filter. For non-Rule targets it returns nil, meaning "no filtering
// applies".
// Callers must check the nil case before consulting the set.
func AllowedLabelsFor(t *target.Target, filter target.DependencyFilter) stringset.Set {
	if !t.IsRule() {
		return nil
	}
	return AllowedLabels(t.Rule, filter)
}

// Permits reports whether dst is in the allowed outgoing set for t,
// treating a non-rule t (nil allowed set) as permitting everything.
func Permits(t *target.Target, filter target.DependencyFilter, dst label.Label) bool {
	allowed := AllowedLabelsFor(t, filter)
	if allowed == nil {
		return true
	}
	return allowed.Has(dst.String())
}
