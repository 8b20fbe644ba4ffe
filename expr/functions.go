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

// Function names a query primitive a parser (out of scope for this
// package) could bind to one of this package's Expression constructors.
// The engine itself never constructs a Function by name; it only needs
// to advertise, via GetFunctions, which names its environment adds
// beyond whatever base set the parser already knows about.
type Function struct {
	Name  string
	Arity int
}

// BaseFunctionNames lists the names any query environment is assumed to
// support regardless of this engine (the set-algebra operators are
// spelled with operators, not function calls, so they are not listed
// here).
var BaseFunctionNames = []string{"deps", "rdeps"}

// engineFunctions are the names this engine's environment adds over the
// base set.
var engineFunctions = []Function{
	{Name: "allrdeps", Arity: 1},
	{Name: "rbuildfiles", Arity: -1}, // variadic
}

// GetFunctions returns BaseFunctionNames plus this engine's own
// additions, each as a Function descriptor.
func GetFunctions() []Function {
	out := make([]Function, 0, len(BaseFunctionNames)+len(engineFunctions))
	for _, n := range BaseFunctionNames {
		out = append(out, Function{Name: n, Arity: -1})
	}
	out = append(out, engineFunctions...)
	return out
}
