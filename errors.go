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
	stderrors "errors"
)

// Sentinel errors for conditions that are not themselves
// accumulated-event-driven (those go through events.Handler instead).
// Callers that need to distinguish these from an annotated wrapper must
// use go.chromium.org/luci/common/errors.Contains rather than the
// standard library's errors.Is: errors.Annotate does not implement
// Unwrap, only InnerError.
var (
	// ErrTargetNotFound is returned by GetTarget for a label absent from
	// its package.
	ErrTargetNotFound = stderrors.New("depquery: target not found")
	// ErrPackageContainsErrors is returned by GetTarget for a label whose
	// package failed to load.
	ErrPackageContainsErrors = stderrors.New("depquery: package contains errors")
	// ErrUniverseAnomaly is raised when universe initialization returns
	// anything other than exactly one root value or a cycle error.
	ErrUniverseAnomaly = stderrors.New("depquery: universe initialization returned an unexpected result")
	// ErrEvaluationReentered is returned by Evaluate when called more
	// than once on the same Environment.
	ErrEvaluationReentered = stderrors.New("depquery: Environment.Evaluate called more than once")
	// ErrQueryFailed wraps the top-level keep-going=false failure.
	ErrQueryFailed = stderrors.New("depquery: query evaluation failed")
)
