// Package pyversions derives trove classifier tags from Python version constraints
package pyversions

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// knownVersions maps each Python major line to its known minor
// releases, in release order.
var knownVersions = map[int][]string{
	2: {"2.6", "2.7"},
	3: {"3.0", "3.1", "3.2", "3.3", "3.4", "3.5", "3.6"},
}

const classifierPrefix = "Programming Language :: Python"

// ConstraintParseError reports a version constraint that is not a
// valid range expression.
type ConstraintParseError struct {
	Constraint string
	Err        error
}

func (e *ConstraintParseError) Error() string {
	return fmt.Sprintf("invalid python version constraint %q: %v", e.Constraint, e.Err)
}

func (e *ConstraintParseError) Unwrap() error { return e.Err }

// Classify returns the trove classifier tags matching the given
// version constraints: the generic Python tag, then one tag per major
// line with any compatible release, each followed by a tag per
// compatible minor release in release order. Majors ascend and tags
// never repeat.
func Classify(constraints []string) ([]string, error) {
	compatible := make(map[int][]string)
	seen := make(map[string]bool)

	for _, constraint := range constraints {
		spec, err := semver.NewConstraint(constraint)
		if err != nil {
			return nil, &ConstraintParseError{Constraint: constraint, Err: err}
		}

		for major, versions := range knownVersions {
			for _, version := range versions {
				v, err := semver.NewVersion(version)
				if err != nil {
					// Catalog entries are fixed and always parse
					continue
				}

				if spec.Check(v) && !seen[version] {
					seen[version] = true
					compatible[major] = append(compatible[major], version)
				}
			}
		}
	}

	classifiers := []string{classifierPrefix}

	majors := make([]int, 0, len(compatible))
	for major := range compatible {
		majors = append(majors, major)
	}
	sort.Ints(majors)

	for _, major := range majors {
		classifiers = append(classifiers, fmt.Sprintf("%s :: %d", classifierPrefix, major))

		// Restore catalog order; matches may have accumulated across
		// constraints out of release order.
		matched := make(map[string]bool, len(compatible[major]))
		for _, version := range compatible[major] {
			matched[version] = true
		}
		for _, version := range knownVersions[major] {
			if matched[version] {
				classifiers = append(classifiers, fmt.Sprintf("%s :: %s", classifierPrefix, version))
			}
		}
	}

	return classifiers, nil
}
