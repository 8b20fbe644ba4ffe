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

package fakegraph

import (
	"bytes"
	"encoding/gob"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/target"
	"github.com/rieckegino/depquery/walkgraph"
)

func init() {
	gob.Register(graphkey.TransitiveTraversalKey{})
	gob.Register(graphkey.PackageKey{})
	gob.Register(graphkey.PackageLookupKey{})
	gob.Register(graphkey.FileKey{})
	gob.Register(graphkey.BlacklistPrefixesKey{})

	gob.Register(&target.Package{})
	gob.Register(&walkgraph.TransitiveTraversalValue{})
	gob.Register(&walkgraph.PackageLookupValue{})
	gob.Register(&walkgraph.BlacklistPrefixesValue{})
}

// badgerKey derives a flat byte key for k, namespaced under prefix so
// the node/forward/reverse/value/exception rows for the same GraphKey
// never collide in one keyspace. GraphKey.String() already gives a
// unique rendering per key, so there is no need to gob-encode the key
// itself here; gob is reserved for the structured payloads (key lists,
// values) stored under it.
func badgerKey(prefix string, k graphkey.GraphKey) []byte {
	return []byte(prefix + k.String())
}

func encodeKeys(keys []graphkey.GraphKey) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(keys); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeKeys(data []byte) ([]graphkey.GraphKey, error) {
	var keys []graphkey.GraphKey
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(data []byte) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
