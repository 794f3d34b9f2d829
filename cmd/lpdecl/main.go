/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command lpdecl resolves the declarations of a declaration file and prints
// the resulting containers as a YAML report.
//
//	lpdecl --declarations decls.yaml [--config settings.yaml] [--log-level debug]
//	       [--empty-domain-policy warn|error|ignore] [--print-metrics]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"

	"github.com/llm-d/llm-d-lpdecl/internal/config"
	"github.com/llm-d/llm-d-lpdecl/internal/declfile"
	"github.com/llm-d/llm-d-lpdecl/internal/logging"
	"github.com/llm-d/llm-d-lpdecl/internal/metrics"
	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("lpdecl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path of a YAML settings file")
	config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	settings, err := config.Load(*configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "invalid settings: %v\n", err) //nolint:errcheck
		return 1
	}
	logger, err := logging.NewLogger(settings.LogLevel, false)
	if err != nil {
		fmt.Fprintf(stderr, "failed to set up logging: %v\n", err) //nolint:errcheck
		return 1
	}
	logging.SetLogger(logger)

	file, err := declfile.ReadFile(settings.Declarations)
	if err != nil {
		logger.Error(err, "Failed to read declarations", "path", settings.Declarations)
		return 1
	}
	plans, err := file.Build()
	if err != nil {
		logger.Error(err, "Failed to compile declarations", "path", settings.Declarations)
		return 1
	}

	reg := prometheus.NewRegistry()
	rm, err := metrics.NewResolverMetrics(reg)
	if err != nil {
		logger.Error(err, "Failed to register metrics")
		return 1
	}

	report, resolveErr := declfile.ResolveAll(logger, plans, settings.PolicyFor, declare.WithObserver(rm))
	if err := report.Write(stdout); err != nil {
		logger.Error(err, "Failed to write report")
		return 1
	}
	if settings.PrintMetrics {
		if err := printMetrics(stdout, reg); err != nil {
			logger.Error(err, "Failed to print metrics")
			return 1
		}
	}
	if resolveErr != nil {
		return 1
	}
	return 0
}

func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
