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

// Command depquery is a thin demonstration driver for the query engine:
// it builds a small seed graph in memory, runs one query expression
// against it, and prints the matching labels. It exists to exercise
// Environment.Evaluate end to end; real pattern parsing, BUILD-file
// loading, and graph persistence are all out of this engine's scope
// and are stubbed here with fixture data.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/rieckegino/depquery"
	"github.com/rieckegino/depquery/events"
	"github.com/rieckegino/depquery/internal/fakegraph"
	"github.com/rieckegino/depquery/target"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		universe     []string
		keepGoing    bool
		threads      int
		parserPrefix string
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "depquery <query>",
		Short: "Evaluate a dependency query against the demo fixture graph",
		Long: `depquery drives the core query engine against a small built-in
fixture graph: packages //a (targets x, y, z, hidden) and //b (target y),
with x depending on y and the visibility-filtered hidden, and y depending
on z.

Supported query syntax: deps(T), rdeps(U, T[, depth]), allrdeps(T[, depth]),
rbuildfiles(path, ...), a bare target pattern (//pkg:name or //pkg/...),
and left-to-right +, -, ^ between any of those.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], universe, keepGoing, threads, parserPrefix, metricsAddr)
		},
	}

	cmd.Flags().StringSliceVar(&universe, "universe", []string{"//a/...", "//b/..."}, "universe scope patterns (repeatable)")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", true, "warn and continue on errors instead of aborting")
	cmd.Flags().IntVar(&threads, "threads", runtime.NumCPU(), "loading-phase worker threads")
	cmd.Flags().StringVar(&parserPrefix, "parser-prefix", "", "workspace-relative prefix used to absolutize bare patterns")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("depquery 0.1.0")
		},
	})

	return cmd
}

func run(ctx context.Context, query string, universe []string, keepGoing bool, threads int, parserPrefix, metricsAddr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = gologger.StdConfig.Use(ctx)

	if metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(metricsAddr, promhttp.Handler()); err != nil {
				logging.Errorf(ctx, "metrics listener on %s stopped: %s", metricsAddr, err)
			}
		}()
		logging.Infof(ctx, "serving Prometheus metrics on %s", metricsAddr)
	}

	expression, err := parseExpression(query)
	if err != nil {
		return fmt.Errorf("parsing query %q: %w", query, err)
	}

	builder, packages := demoFixture()
	graph, err := builder.Build(ctx, fakegraph.Config{InMemory: true})
	if err != nil {
		return fmt.Errorf("building fixture graph: %w", err)
	}
	defer graph.Close()

	factory := fakegraph.NewFactory(graph, false)
	evaluator := newMemEvaluator(packages)

	cfg := depquery.Config{
		KeepGoing:           keepGoing,
		LoadingPhaseThreads: threads,
		DependencyFilter:    target.AllDeps,
		ParserPrefix:        parserPrefix,
		UniverseScope:       universe,
	}

	env, err := depquery.New(cfg, factory, evaluator)
	if err != nil {
		return fmt.Errorf("building environment: %w", err)
	}

	sink := events.NewCollectingHandler(ctx)
	result, err := env.Evaluate(ctx, expression, sink, func(batch []*target.Target) error {
		for _, t := range batch {
			fmt.Println(t.Label.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("evaluating %q: %w", query, err)
	}

	logging.Infof(ctx, "query %q: success=%t empty=%t", query, result.Success, result.Empty)
	for _, e := range sink.Events() {
		logging.Infof(ctx, "event[%s]: %s", e.Severity, e.Message)
	}
	return nil
}
