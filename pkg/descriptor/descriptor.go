// Package descriptor composes the normalized build descriptor from a
// manifest, the version classifier and a crawl result.
package descriptor

import (
	"fmt"
	"strings"

	"github.com/stanza-build/stanza/pkg/crawler"
	"github.com/stanza-build/stanza/pkg/pyversions"
	"github.com/stanza-build/stanza/pkg/types"
)

// Build composes a build descriptor. The composition is pure: all
// filesystem work happened in the crawl, and any failure here
// propagates unwrapped to the caller.
func Build(m *types.Manifest, crawl *crawler.Result) (*types.BuildDescriptor, error) {
	if len(m.Authors) == 0 {
		return nil, &AuthorFormatError{Value: ""}
	}
	author, err := ParseAuthor(m.Authors[0])
	if err != nil {
		return nil, err
	}

	classifiers, err := pyversions.Classify(m.Python)
	if err != nil {
		return nil, err
	}

	d := &types.BuildDescriptor{
		Name:            m.Name,
		Version:         m.Version,
		Description:     m.Description,
		LongDescription: m.Readme,
		Author:          author.Name,
		AuthorEmail:     author.Email,
		URL:             url(m),
		License:         m.License,
		Keywords:        strings.Join(m.Keywords, " "),
		Classifiers:     classifiers,
		EntryPoints:     entryPoints(m),
		InstallRequires: installRequires(m),
		Packages:        crawl.Packages,
		PyModules:       crawl.Modules,
		ExtModules:      extModules(m),
	}

	return d, nil
}

// url prefers the homepage, falling back to the repository
func url(m *types.Manifest) string {
	if m.Homepage != "" {
		return m.Homepage
	}
	return m.Repository
}

// entryPoints renders console scripts in declaration order
func entryPoints(m *types.Manifest) map[string][]string {
	scripts := make([]string, 0, len(m.Scripts))
	for _, s := range m.Scripts {
		scripts = append(scripts, fmt.Sprintf("%s=%s", s.Name, s.Target))
	}
	return map[string][]string{"console_scripts": scripts}
}

// installRequires renders dependencies in declaration order,
// duplicates allowed
func installRequires(m *types.Manifest) []string {
	requires := make([]string, 0, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		requires = append(requires, dep.NormalizedName())
	}
	return requires
}

// extModules normalizes extension declarations: a single declared
// source becomes a one-element slice
func extModules(m *types.Manifest) []types.ExtensionSpec {
	specs := make([]types.ExtensionSpec, 0, len(m.Extensions))
	for _, ext := range m.Extensions {
		sources := ext.Sources
		if len(sources) == 0 && ext.Source != "" {
			sources = []string{ext.Source}
		}
		specs = append(specs, types.ExtensionSpec{Module: ext.Module, Sources: sources})
	}
	return specs
}
