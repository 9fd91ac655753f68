package descriptor_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stanza-build/stanza/pkg/crawler"
	"github.com/stanza-build/stanza/pkg/descriptor"
	"github.com/stanza-build/stanza/pkg/types"
)

func TestParseAuthor(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantName  string
		wantEmail string
		wantErr   bool
	}{
		{
			name:      "plain author",
			value:     "Jane Doe <jane@example.com>",
			wantName:  "Jane Doe",
			wantEmail: "jane@example.com",
		},
		{
			name:      "punctuation in name",
			value:     "O'Brien, J. (maintainer) <j.obrien@example.org>",
			wantName:  "O'Brien, J. (maintainer)",
			wantEmail: "j.obrien@example.org",
		},
		{
			name:    "missing email",
			value:   "not-an-email",
			wantErr: true,
		},
		{
			name:    "empty string",
			value:   "",
			wantErr: true,
		},
		{
			name:    "email without brackets",
			value:   "Jane Doe jane@example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			author, err := descriptor.ParseAuthor(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAuthor(%q) succeeded, want error", tt.value)
				}
				var formatErr *descriptor.AuthorFormatError
				if !errors.As(err, &formatErr) {
					t.Fatalf("error type = %T, want *AuthorFormatError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAuthor(%q) error: %v", tt.value, err)
			}
			if author.Name != tt.wantName || author.Email != tt.wantEmail {
				t.Errorf("ParseAuthor(%q) = %+v", tt.value, author)
			}
		})
	}
}

func sampleManifest() *types.Manifest {
	return &types.Manifest{
		Name:        "stanza-demo",
		Version:     "0.1.0",
		Description: "A demo package",
		Authors:     []string{"Jane Doe <jane@example.com>"},
		License:     "MIT",
		Homepage:    "https://example.com",
		Repository:  "https://github.com/example/stanza-demo",
		Keywords:    []string{"packaging", "build"},
		Python:      []string{">=3.5,<4.0"},
		Scripts: []types.Script{
			{Name: "demo", Target: "demo:main"},
			{Name: "demo-admin", Target: "demo.admin:main"},
		},
		Dependencies: []types.Dependency{
			{Name: "requests", Constraint: "^2.13"},
			{Name: "six", Constraint: "*"},
		},
		Readme:       "Demo\n====\n",
		ReadmeFormat: types.ReadmeFormatRst,
		Extensions: []types.Extension{
			{Module: "demo._speedups", Source: "ext/speedups.c"},
			{Module: "demo._more", Sources: []string{"ext/a.c", "ext/b.c"}},
		},
	}
}

func TestBuild(t *testing.T) {
	crawl := &crawler.Result{
		Packages:  []string{"demo"},
		Modules:   []string{"helper"},
		DataFiles: []string{"include demo/data.json"},
	}

	d, err := descriptor.Build(sampleManifest(), crawl)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if d.Author != "Jane Doe" || d.AuthorEmail != "jane@example.com" {
		t.Errorf("author = %q <%q>", d.Author, d.AuthorEmail)
	}
	if d.URL != "https://example.com" {
		t.Errorf("URL = %q, want homepage", d.URL)
	}
	if d.Keywords != "packaging build" {
		t.Errorf("Keywords = %q", d.Keywords)
	}
	wantScripts := []string{"demo=demo:main", "demo-admin=demo.admin:main"}
	if !reflect.DeepEqual(d.EntryPoints["console_scripts"], wantScripts) {
		t.Errorf("console_scripts = %v, want %v", d.EntryPoints["console_scripts"], wantScripts)
	}
	wantRequires := []string{"requests>=2.13,<3.0.0", "six"}
	if !reflect.DeepEqual(d.InstallRequires, wantRequires) {
		t.Errorf("InstallRequires = %v, want %v", d.InstallRequires, wantRequires)
	}
	if !reflect.DeepEqual(d.Packages, []string{"demo"}) {
		t.Errorf("Packages = %v", d.Packages)
	}
	if !reflect.DeepEqual(d.PyModules, []string{"helper"}) {
		t.Errorf("PyModules = %v", d.PyModules)
	}

	wantClassifiers := []string{
		"Programming Language :: Python",
		"Programming Language :: Python :: 3",
		"Programming Language :: Python :: 3.5",
		"Programming Language :: Python :: 3.6",
	}
	if !reflect.DeepEqual(d.Classifiers, wantClassifiers) {
		t.Errorf("Classifiers = %v", d.Classifiers)
	}

	wantExt := []types.ExtensionSpec{
		{Module: "demo._speedups", Sources: []string{"ext/speedups.c"}},
		{Module: "demo._more", Sources: []string{"ext/a.c", "ext/b.c"}},
	}
	if !reflect.DeepEqual(d.ExtModules, wantExt) {
		t.Errorf("ExtModules = %v", d.ExtModules)
	}
}

func TestBuildRepositoryFallback(t *testing.T) {
	m := sampleManifest()
	m.Homepage = ""

	d, err := descriptor.Build(m, &crawler.Result{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if d.URL != "https://github.com/example/stanza-demo" {
		t.Errorf("URL = %q, want repository fallback", d.URL)
	}
}

func TestBuildEmptyKeywords(t *testing.T) {
	m := sampleManifest()
	m.Keywords = nil

	d, err := descriptor.Build(m, &crawler.Result{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if d.Keywords != "" {
		t.Errorf("Keywords = %q, want empty string", d.Keywords)
	}
}

func TestBuildBadAuthor(t *testing.T) {
	m := sampleManifest()
	m.Authors = []string{"not-an-email"}

	_, err := descriptor.Build(m, &crawler.Result{})
	var formatErr *descriptor.AuthorFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("error = %v, want *AuthorFormatError", err)
	}
}

func TestBuildBadConstraint(t *testing.T) {
	m := sampleManifest()
	m.Python = []string{"??"}

	_, err := descriptor.Build(m, &crawler.Result{})
	if err == nil {
		t.Fatal("expected constraint error")
	}
}
