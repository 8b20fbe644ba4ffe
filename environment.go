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
	"sync"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/rieckegino/depquery/events"
	"github.com/rieckegino/depquery/expr"
	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/internal/adapter"
	"github.com/rieckegino/depquery/internal/batchcallback"
	"github.com/rieckegino/depquery/internal/materializer"
	"github.com/rieckegino/depquery/internal/patternresolver"
	"github.com/rieckegino/depquery/internal/rbuildfiles"
	"github.com/rieckegino/depquery/internal/traversal"
	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
	"github.com/rieckegino/depquery/walkgraph"
)

// QueryEvalResult is the outcome of one Evaluate call.
type QueryEvalResult struct {
	// Success reports ¬hasErrors under the configured keep-going policy.
	Success bool
	// Empty reports whether every partial result delivered to the
	// consumer was empty.
	Empty bool
}

// Environment is the Query Driver. It is single-use:
// Evaluate may be called exactly once.
type Environment struct {
	cfg         Config
	factory     walkgraph.WalkableGraphFactory
	patternEval patternresolver.Evaluator

	mu        sync.Mutex
	evaluated bool

	graph        walkgraph.WalkableGraph
	universeKey  graphkey.GraphKey
	adapter      *adapter.Adapter
	materializer *materializer.Materializer
	traversal    *traversal.Engine
	bridge       *patternresolver.Bridge
	rbuildfiles  *rbuildfiles.Engine
}

// New builds an Environment from cfg. It validates cfg but does not
// touch the graph; universe loading happens lazily inside Evaluate.
func New(cfg Config, factory walkgraph.WalkableGraphFactory, patternEval patternresolver.Evaluator) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Annotate(err, "depquery.New").Err()
	}
	return &Environment{cfg: cfg, factory: factory, patternEval: patternEval}, nil
}

// Evaluate runs the full query-driver lifecycle against expression,
// streaming deduplicated batches to consumer.
func (e *Environment) Evaluate(ctx context.Context, expression expr.Expression, sink events.Handler, consumer func([]*target.Target) error) (QueryEvalResult, error) {
	e.mu.Lock()
	if e.evaluated {
		e.mu.Unlock()
		return QueryEvalResult{}, ErrEvaluationReentered
	}
	e.evaluated = true
	e.mu.Unlock()

	started := time.Now()
	outcome := "error"
	defer func() { observeEvaluation(started, outcome) }()

	// Step 1: reset prior errors on the event sink.
	sink.ResetErrors()

	// Step 2: initialize the universe.
	result, err := e.factory.PrepareAndGet(ctx, e.cfg.UniverseScope, e.cfg.ParserPrefix, e.cfg.LoadingPhaseThreads, sink)
	if err != nil {
		return QueryEvalResult{}, errors.Annotate(err, "depquery: initializing universe").Err()
	}
	e.universeKey = e.factory.UniverseKey(e.cfg.UniverseScope, e.cfg.ParserPrefix)
	if !result.HasCycle {
		exists, err := result.Graph.Exists(ctx, e.universeKey)
		if err != nil {
			return QueryEvalResult{}, errors.Annotate(err, "depquery: checking universe root value").Err()
		}
		if !exists {
			return QueryEvalResult{}, ErrUniverseAnomaly
		}
	} else {
		logging.Warningf(ctx, "depquery: universe %v has a cycle; affected targets are omitted from results", e.cfg.UniverseScope)
	}
	e.graph = result.Graph

	// Step 3: build the resolver and blacklist supplier.
	e.adapter = adapter.New(e.graph)
	e.materializer = materializer.New(e.adapter)
	e.traversal = traversal.New(e.adapter, e.materializer, e.cfg.DependencyFilter)
	e.rbuildfiles = rbuildfiles.New(e.adapter, BatchSize)
	e.bridge = patternresolver.New(e.patternEval, &adapterBlacklistSource{adapter: e.adapter}, e.universeKey, e.cfg.ParserPrefix, e.cfg.LoadingPhaseThreads)

	// Step 4: optimize the expression.
	optimized := expr.Optimize(expression, e.cfg.UniverseScope)

	// Step 5: wrap the consumer in the batch streaming callback, counting
	// each batch it actually forwards downstream.
	batched := batchcallback.New(func(batch []*target.Target) error {
		observeBatch(len(batch))
		return consumer(batch)
	}, BatchSize)

	// Step 6: evaluate, observing whether any partial result was non-empty.
	empty := true
	qenv := &queryEnv{env: e}
	evalErr := optimized.Eval(ctx, qenv, func(batch []*target.Target) error {
		if len(batch) > 0 {
			empty = false
		}
		return batched.Process(batch)
	})

	// Step 7: flush the callback regardless of evalErr, then surface
	// whichever error came first.
	flushErr := batched.Flush()
	if evalErr != nil {
		return QueryEvalResult{}, errors.Annotate(evalErr, "depquery: evaluating %s", optimized.String()).Err()
	}
	if flushErr != nil {
		return QueryEvalResult{}, errors.Annotate(flushErr, "depquery: flushing results of %s", optimized.String()).Err()
	}

	// Step 8: apply the keep-going policy.
	if sink.HasErrors() {
		if !e.cfg.KeepGoing {
			outcome = "failed"
			return QueryEvalResult{Success: false, Empty: empty}, errors.Annotate(ErrQueryFailed, "depquery: evaluating %s", optimized.String()).Err()
		}
		logging.Warningf(ctx, "depquery: evaluation of %s completed with errors; results may be inaccurate (keep_going)", optimized.String())
		outcome = "keep_going"
	} else {
		outcome = "success"
	}

	// Step 9.
	return QueryEvalResult{Success: !sink.HasErrors(), Empty: empty}, nil
}

// Functions reports every query primitive this Environment understands:
// the engine's own additions (expr.GetFunctions) plus whatever
// cfg.ExtraFunctions the caller injected. A parser builds its grammar
// from this list rather than hardcoding engine-specific names.
func (e *Environment) Functions() []expr.Function {
	out := append([]expr.Function(nil), expr.GetFunctions()...)
	return append(out, e.cfg.ExtraFunctions...)
}

// requireEvaluated guards the direct-access methods below: they read
// state Evaluate populates, and are meaningless before it has run once.
func (e *Environment) requireEvaluated() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.evaluated {
		return errors.Reason("depquery: Environment method called before Evaluate").Err()
	}
	return nil
}

// GetTarget fetches a single Target by label.
func (e *Environment) GetTarget(ctx context.Context, l label.Label) (*target.Target, error) {
	if err := e.requireEvaluated(); err != nil {
		return nil, err
	}
	pkgValue, ok, err := e.adapter.Value(ctx, graphkey.PackageKey{Package: l.Package()})
	if err != nil {
		return nil, errors.Annotate(err, "getTarget(%s): fetching package", l).Err()
	}
	if !ok {
		return nil, errors.Annotate(ErrPackageContainsErrors, "getTarget(%s)", l).Err()
	}
	pkg, ok := pkgValue.(*target.Package)
	if !ok {
		return nil, errors.Reason("getTarget(%s): package value has unexpected type %T", l, pkgValue).Err()
	}
	if pkg.ContainsErrors {
		return nil, errors.Annotate(ErrPackageContainsErrors, "getTarget(%s)", l).Err()
	}
	t, ok := pkg.Target(l.Name)
	if !ok {
		return nil, errors.Annotate(ErrTargetNotFound, "getTarget(%s)", l).Err()
	}
	return t, nil
}

// NodesOnPath exposes the Traversal Engine's path reconstruction.
func (e *Environment) NodesOnPath(ctx context.Context, from, to *target.Target) ([]*target.Target, bool, error) {
	if err := e.requireEvaluated(); err != nil {
		return nil, false, err
	}
	return e.traversal.NodesOnPath(ctx, from, to)
}

// BuildTransitiveClosure is the error-checking probe exposed alongside
// getTransitiveClosure: it scans nodes' loading outcomes and reports
// recovered/unrecovered errors to sink without recomputing any closure.
func (e *Environment) BuildTransitiveClosure(ctx context.Context, nodes []*target.Target, sink events.Handler) error {
	if err := e.requireEvaluated(); err != nil {
		return err
	}
	return e.traversal.BuildTransitiveClosure(ctx, nodes, &eventErrSink{sink: sink})
}

// GetBuildFiles collects, for each package that contains one of nodes,
// its BUILD-file target and (optionally) one target per entry of its
// ExtensionLabels, deduplicated by Label. Subincludes and loads are not
// told apart: includeSubincludes covers both. Packages only reachable
// from nodes are not visited. This is a richer per-node query than
// rbuildfiles' package-level BUILD-file projection.
func (e *Environment) GetBuildFiles(ctx context.Context, nodes []*target.Target, includeBuildFiles, includeSubincludes bool) ([]*target.Target, error) {
	if err := e.requireEvaluated(); err != nil {
		return nil, err
	}

	pkgIDs := map[label.PackageID]bool{}
	for _, n := range nodes {
		pkgIDs[n.Label.Package()] = true
	}
	keys := make([]graphkey.GraphKey, 0, len(pkgIDs))
	for id := range pkgIDs {
		keys = append(keys, graphkey.PackageKey{Package: id})
	}
	values, err := e.adapter.SuccessfulValues(ctx, keys)
	if err != nil {
		return nil, errors.Annotate(err, "getBuildFiles: fetching %d packages", len(keys)).Err()
	}

	seen := map[label.Label]bool{}
	var out []*target.Target
	for _, v := range values {
		pkg, ok := v.(*target.Package)
		if !ok {
			return nil, errors.Reason("getBuildFiles: package value has unexpected type %T", v).Err()
		}
		if includeBuildFiles && !seen[pkg.BuildFile] {
			seen[pkg.BuildFile] = true
			out = append(out, &target.Target{Label: pkg.BuildFile, Kind: target.KindSourceFile})
		}
		if includeSubincludes {
			for _, extLabel := range pkg.ExtensionLabels {
				if seen[extLabel] {
					continue
				}
				seen[extLabel] = true
				out = append(out, target.FakeSubincludeTarget(extLabel))
			}
		}
	}
	return out, nil
}

// RBuildFiles answers the reverse-buildfiles query directly (not
// through an Expression), for callers that want the raw operation
// without building a query tree.
func (e *Environment) RBuildFiles(ctx context.Context, paths []string, cb func([]*target.Target) error) error {
	if err := e.requireEvaluated(); err != nil {
		return err
	}
	rooted := make([]graphkey.RootedPath, len(paths))
	for i, p := range paths {
		rooted[i] = graphkey.RootedPath{Path: p}
	}
	return e.rbuildfiles.GetRBuildFiles(ctx, rooted, cb)
}

// eventErrSink adapts events.Handler to traversal.ErrSink.
type eventErrSink struct {
	sink events.Handler
}

func (s *eventErrSink) BuildFileError(key graphkey.GraphKey, message string) {
	s.sink.Handle(events.Event{Severity: events.Error, Message: "build file error for " + key.String() + ": " + message})
}

func (s *eventErrSink) DoesNotExist(key graphkey.GraphKey) {
	s.sink.Handle(events.Event{Severity: events.Warning, Message: key.String() + " does not exist in graph"})
}

// queryEnv adapts Environment's collaborators to expr.Env, the surface
// query expressions evaluate against.
type queryEnv struct {
	env *Environment
}

func (q *queryEnv) FwdDeps(ctx context.Context, targets []*target.Target) ([]*target.Target, error) {
	return q.env.traversal.FwdDeps(ctx, targets)
}

func (q *queryEnv) ReverseDeps(ctx context.Context, targets []*target.Target) ([]*target.Target, error) {
	return q.env.traversal.ReverseDeps(ctx, targets)
}

func (q *queryEnv) TransitiveClosure(ctx context.Context, seeds []*target.Target) ([]*target.Target, error) {
	return q.env.traversal.TransitiveClosure(ctx, seeds)
}

// AllRDeps computes allrdeps(operand) as an undirected, universe-wide
// reverse walk: unlike RDeps it never recomputes
// universe membership, because the graph was already loaded scoped to
// the universe.
func (q *queryEnv) AllRDeps(ctx context.Context, targets []*target.Target, maxDepth int) ([]*target.Target, error) {
	visited := map[label.Label]*target.Target{}
	for _, t := range targets {
		visited[t.Label] = t
	}
	frontier := targets
	for depth := 0; maxDepth <= 0 || depth < maxDepth; depth++ {
		if len(frontier) == 0 {
			break
		}
		parents, err := q.env.traversal.ReverseDeps(ctx, frontier)
		if err != nil {
			return nil, errors.Annotate(err, "allrdeps").Err()
		}
		var next []*target.Target
		for _, p := range parents {
			if _, ok := visited[p.Label]; ok {
				continue
			}
			visited[p.Label] = p
			next = append(next, p)
		}
		frontier = next
	}
	out := make([]*target.Target, 0, len(visited))
	for _, t := range visited {
		out = append(out, t)
	}
	return out, nil
}

func (q *queryEnv) TargetsMatchingPattern(ctx context.Context, pattern string, cb func([]*target.Target) error) error {
	return q.env.bridge.TargetsMatchingPattern(ctx, pattern, cb)
}

func (q *queryEnv) RBuildFiles(ctx context.Context, paths []string, cb func([]*target.Target) error) error {
	return q.env.RBuildFiles(ctx, paths, cb)
}

func (q *queryEnv) UniverseScope() []string {
	return q.env.cfg.UniverseScope
}
