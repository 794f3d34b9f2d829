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

package declfile

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/utils/ptr"

	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

// Report summarizes resolved declarations.
type Report struct {
	Declarations []DeclarationReport `yaml:"declarations"`
}

// DeclarationReport describes one resolved container.
type DeclarationReport struct {
	Name     string        `yaml:"name"`
	Kind     string        `yaml:"kind"`
	Indices  []string      `yaml:"indices"`
	Dims     []int         `yaml:"dims,omitempty,flow"`
	Entries  int           `yaml:"entries"`
	Tuples   []EntryReport `yaml:"tuples,omitempty"`
	Warnings []string      `yaml:"warnings,omitempty"`
}

// EntryReport is one stored tuple. Infinite bounds are omitted.
type EntryReport struct {
	Index string   `yaml:"index"`
	Lower *float64 `yaml:"lower,omitempty"`
	Upper *float64 `yaml:"upper,omitempty"`
}

// NewDeclarationReport summarizes c.
func NewDeclarationReport(c *declare.Container[declare.Entry]) DeclarationReport {
	r := DeclarationReport{
		Name:    c.Name(),
		Kind:    c.Kind().String(),
		Indices: c.IndexNames(),
		Dims:    c.Dims(),
		Entries: c.Len(),
	}
	for _, e := range c.Values() {
		er := EntryReport{Index: e.Index.String()}
		if e.HasLower() {
			er.Lower = ptr.To(e.Lower)
		}
		if e.HasUpper() {
			er.Upper = ptr.To(e.Upper)
		}
		r.Tuples = append(r.Tuples, er)
	}
	for _, w := range c.Warnings() {
		r.Warnings = append(r.Warnings, w.Error())
	}
	return r
}

// Write encodes the report as YAML.
func (r *Report) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// ResolveAll resolves every plan with a resolver built from opts and the
// plan's effective empty domain policy. Declarations that fail are left out of
// the report and their errors are returned together.
func ResolveAll(
	logger logr.Logger,
	plans []Plan,
	policyFor func(allowEmpty *bool) declare.EmptyDomainPolicy,
	opts ...declare.Option,
) (*Report, error) {
	report := &Report{Declarations: make([]DeclarationReport, 0, len(plans))}
	var errs []error
	for _, p := range plans {
		policy := policyFor(p.AllowEmpty)
		ropts := make([]declare.Option, 0, len(opts)+2)
		ropts = append(ropts, declare.WithLogger(logger), declare.WithEmptyDomainPolicy(policy))
		ropts = append(ropts, opts...)
		r := declare.NewResolver(ropts...)

		c, err := r.Resolve(p.Declaration)
		if err != nil {
			logger.Error(err, "Failed to resolve declaration", "declaration", p.Declaration.Name)
			errs = append(errs, err)
			continue
		}
		logger.Info("Resolved declaration",
			"declaration", c.Name(),
			"kind", c.Kind().String(),
			"entries", c.Len(),
			"policy", policy.String())
		report.Declarations = append(report.Declarations, NewDeclarationReport(c))
	}
	return report, utilerrors.NewAggregate(errs)
}
