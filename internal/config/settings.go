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

// Package config loads lpdecl settings from defaults, a config file,
// LPDECL_* environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/utils/ptr"

	"github.com/llm-d/llm-d-lpdecl/internal/logging"
	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

// EnvPrefix is the prefix of environment overrides, e.g. LPDECL_LOGLEVEL=debug.
const EnvPrefix = "LPDECL"

// Setting keys.
const (
	KeyLogLevel          = "logLevel"
	KeyEmptyDomainPolicy = "emptyDomainPolicy"
	KeyDeclarations      = "declarations"
	KeyPrintMetrics      = "printMetrics"
)

// flag name for each setting key
var flagNames = map[string]string{
	KeyLogLevel:          "log-level",
	KeyEmptyDomainPolicy: "empty-domain-policy",
	KeyDeclarations:      "declarations",
	KeyPrintMetrics:      "print-metrics",
}

// Settings is the effective lpdecl configuration.
type Settings struct {
	// LogLevel is one of info, debug, trace.
	LogLevel string `mapstructure:"logLevel" yaml:"logLevel"`

	// EmptyDomainPolicy is one of warn, error, ignore.
	EmptyDomainPolicy string `mapstructure:"emptyDomainPolicy" yaml:"emptyDomainPolicy"`

	// Declarations is the path of the declaration file to resolve.
	Declarations string `mapstructure:"declarations" yaml:"declarations"`

	// PrintMetrics dumps resolver metrics in Prometheus text format after the report.
	PrintMetrics bool `mapstructure:"printMetrics" yaml:"printMetrics"`
}

// BindFlags registers the lpdecl flags on fs. Flags left unset do not override
// file or environment values.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(flagNames[KeyLogLevel], "info", "log level: info, debug or trace")
	fs.String(flagNames[KeyEmptyDomainPolicy], "warn", "empty axis domains: warn, error or ignore")
	fs.String(flagNames[KeyDeclarations], "", "path of the declaration file")
	fs.Bool(flagNames[KeyPrintMetrics], false, "print resolver metrics after the report")
}

// Load reads settings. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyEmptyDomainPolicy, declare.EmptyDomainWarn.String())
	v.SetDefault(KeyDeclarations, "")
	v.SetDefault(KeyPrintMetrics, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
	}

	if flags != nil {
		for key, name := range flagNames {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every field and reports all problems at once.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := declare.ParseEmptyDomainPolicy(s.EmptyDomainPolicy); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(s.Declarations) == "" {
		errs = append(errs, errors.New("declarations file is required"))
	}
	return utilerrors.NewAggregate(errs)
}

// Policy returns the global empty domain policy.
func (s *Settings) Policy() declare.EmptyDomainPolicy {
	p, _ := declare.ParseEmptyDomainPolicy(s.EmptyDomainPolicy)
	return p
}

// PolicyFor merges a per-declaration allowEmpty override with the global
// policy. nil inherits the global policy; true never fails on empty domains;
// false always does.
func (s *Settings) PolicyFor(allowEmpty *bool) declare.EmptyDomainPolicy {
	global := s.Policy()
	if allowEmpty == nil {
		return global
	}
	if !ptr.Deref(allowEmpty, false) {
		return declare.EmptyDomainFail
	}
	if global == declare.EmptyDomainFail {
		return declare.EmptyDomainWarn
	}
	return global
}
