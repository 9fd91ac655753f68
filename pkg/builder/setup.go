package builder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stanza-build/stanza/pkg/types"
)

// EncodeSetup renders a build descriptor as a self-contained setup.py.
// Every value is written through the Python literal encoder below, so
// the rendering is injective: distinct descriptors produce distinct
// scripts and metadata can never bleed into code.
func EncodeSetup(d *types.BuildDescriptor) string {
	var b strings.Builder

	b.WriteString("# -*- coding: utf-8 -*-\n\n")
	b.WriteString("from setuptools import setup\n\n")
	b.WriteString("kwargs = dict(\n")
	fmt.Fprintf(&b, "    name=%s,\n", pyString(d.Name))
	fmt.Fprintf(&b, "    version=%s,\n", pyString(d.Version))
	fmt.Fprintf(&b, "    description=%s,\n", pyString(d.Description))
	fmt.Fprintf(&b, "    long_description=%s,\n", pyString(d.LongDescription))
	fmt.Fprintf(&b, "    author=%s,\n", pyString(d.Author))
	fmt.Fprintf(&b, "    author_email=%s,\n", pyString(d.AuthorEmail))
	fmt.Fprintf(&b, "    url=%s,\n", pyString(d.URL))
	fmt.Fprintf(&b, "    license=%s,\n", pyString(d.License))
	fmt.Fprintf(&b, "    keywords=%s,\n", pyString(d.Keywords))
	fmt.Fprintf(&b, "    classifiers=%s,\n", pyList(d.Classifiers))
	fmt.Fprintf(&b, "    entry_points=%s,\n", pyDictOfLists(d.EntryPoints))
	fmt.Fprintf(&b, "    install_requires=%s,\n", pyList(d.InstallRequires))
	fmt.Fprintf(&b, "    packages=%s,\n", pyList(d.Packages))
	fmt.Fprintf(&b, "    py_modules=%s,\n", pyList(d.PyModules))
	b.WriteString("    script_name='setup.py',\n")
	b.WriteString("    include_package_data=True\n")
	b.WriteString(")\n")

	if len(d.ExtModules) > 0 {
		b.WriteString("\nfrom setuptools import Extension\n\n")
		b.WriteString("kwargs['ext_modules'] = [\n")
		for _, ext := range d.ExtModules {
			fmt.Fprintf(&b, "    Extension(\n        %s,\n        %s\n    ),\n",
				pyString(ext.Module), pyList(ext.Sources))
		}
		b.WriteString("]\n")
	}

	b.WriteString("\nsetup(**kwargs)\n")

	return b.String()
}

// EncodeManifest renders the data-file manifest: newline-joined
// include directives
func EncodeManifest(directives []string) string {
	if len(directives) == 0 {
		return ""
	}
	return strings.Join(directives, "\n") + "\n"
}

// pyString encodes a string as a single-quoted Python literal
func pyString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// pyList encodes a string slice as a Python list literal
func pyList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	encoded := make([]string, 0, len(items))
	for _, item := range items {
		encoded = append(encoded, pyString(item))
	}
	return "[" + strings.Join(encoded, ", ") + "]"
}

// pyDictOfLists encodes a map of string slices as a Python dict
// literal with sorted keys
func pyDictOfLists(m map[string][]string) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, fmt.Sprintf("%s: %s", pyString(k), pyList(m[k])))
	}
	return "{" + strings.Join(entries, ", ") + "}"
}
