// Package types provides core types for stanza manifests and build descriptors
package types

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ReadmeFormat represents the markup format of a project readme
type ReadmeFormat string

const (
	ReadmeFormatMarkdown ReadmeFormat = "markdown"
	ReadmeFormatRst      ReadmeFormat = "rst"
)

// Script is a console entry point declared in the manifest.
// Declaration order is preserved.
type Script struct {
	Name   string
	Target string
}

// Dependency is a single declared dependency with its version constraint
type Dependency struct {
	Name       string
	Constraint string
}

// NormalizedName returns the dependency as a requirement string
// suitable for install_requires, with caret and tilde shorthands
// expanded to explicit ranges.
func (d Dependency) NormalizedName() string {
	c := strings.ReplaceAll(strings.TrimSpace(d.Constraint), " ", "")

	switch {
	case c == "" || c == "*":
		return d.Name

	case strings.HasPrefix(c, "^"):
		v, err := semver.NewVersion(c[1:])
		if err != nil {
			break
		}
		var upper string
		if v.Major() == 0 {
			upper = fmt.Sprintf("0.%d.0", v.Minor()+1)
		} else {
			upper = fmt.Sprintf("%d.0.0", v.Major()+1)
		}
		return fmt.Sprintf("%s>=%s,<%s", d.Name, c[1:], upper)

	case strings.HasPrefix(c, "~"):
		v, err := semver.NewVersion(c[1:])
		if err != nil {
			break
		}
		return fmt.Sprintf("%s>=%s,<%d.%d.0", d.Name, c[1:], v.Major(), v.Minor()+1)
	}

	if strings.ContainsAny(c, "<>=!") {
		return d.Name + c
	}

	// Bare version is an exact pin
	return d.Name + "==" + c
}

// Extension declares a native extension module. Source is set when the
// manifest declares a single source file, Sources when it declares a list.
type Extension struct {
	Module  string
	Source  string
	Sources []string
}

// Manifest is a read-only view of the declarative package manifest.
// It is produced by the manifest loader and never mutated afterwards.
type Manifest struct {
	BaseDir string

	Name        string
	Version     string
	Description string
	Authors     []string
	License     string
	Homepage    string
	Repository  string
	Keywords    []string

	// Python holds the declared runtime version constraints
	Python []string

	Scripts         []Script
	Dependencies    []Dependency
	DevDependencies []Dependency

	Include []string
	Exclude []string
	Ignore  []string

	Extensions []Extension

	Readme       string
	ReadmeFormat ReadmeFormat
}

// Archive returns the source archive file name produced for this manifest
func (m *Manifest) Archive() string {
	return fmt.Sprintf("%s-%s.tar.gz", m.Name, m.Version)
}

// HasMarkdownReadme reports whether the readme needs a converted
// fallback for tools that only accept reStructuredText
func (m *Manifest) HasMarkdownReadme() bool {
	return m.Readme != "" && m.ReadmeFormat == ReadmeFormatMarkdown
}

// ExtensionSpec is a normalized native extension entry: a single
// declared source always becomes a one-element slice.
type ExtensionSpec struct {
	Module  string
	Sources []string
}

// BuildDescriptor is the normalized structure handed to the external
// archive-building tools. Immutable once built.
type BuildDescriptor struct {
	Name            string
	Version         string
	Description     string
	LongDescription string
	Author          string
	AuthorEmail     string
	URL             string
	License         string
	Keywords        string
	Classifiers     []string
	EntryPoints     map[string][]string
	InstallRequires []string
	Packages        []string
	PyModules       []string
	ExtModules      []ExtensionSpec
}
