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

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/internal/adapter"
	"github.com/rieckegino/depquery/walkgraph"
)

// adapterBlacklistSource implements patternresolver.BlacklistSource by
// reading the graph's single BlacklistPrefixesKey value. The returned
// set is a plain, mutable stringset.Set; it stays unchanged in the
// memoized cache because patternresolver.Bridge copies it and never
// calls Add on it.
type adapterBlacklistSource struct {
	adapter *adapter.Adapter
}

func (s *adapterBlacklistSource) Blacklist(ctx context.Context, key graphkey.GraphKey) (stringset.Set, error) {
	v, ok, err := s.adapter.Value(ctx, key)
	if err != nil {
		return nil, errors.Annotate(err, "reading universe blacklist").Err()
	}
	if !ok {
		// No blacklist configured for this universe: an empty set.
		return stringset.New(0), nil
	}
	bv, ok := v.(*walkgraph.BlacklistPrefixesValue)
	if !ok {
		return nil, errors.Reason("blacklist value has unexpected type %T", v).Err()
	}
	return stringset.NewFromSlice(bv.Prefixes...), nil
}
