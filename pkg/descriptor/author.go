package descriptor

import (
	"fmt"
	"regexp"
)

// authorPattern matches the required "Name <email>" author shape
var authorPattern = regexp.MustCompile(`^(?P<name>[-.,\w'’"() ]+) <(?P<email>.+)>$`)

// Author is a parsed primary author entry
type Author struct {
	Name  string
	Email string
}

// AuthorFormatError reports an author string that does not match the
// required "Name <email>" shape.
type AuthorFormatError struct {
	Value string
}

func (e *AuthorFormatError) Error() string {
	return fmt.Sprintf("author %q does not match the required \"Name <email>\" format", e.Value)
}

// ParseAuthor parses an author string into its name and email parts
func ParseAuthor(value string) (Author, error) {
	m := authorPattern.FindStringSubmatch(value)
	if m == nil {
		return Author{}, &AuthorFormatError{Value: value}
	}
	return Author{
		Name:  m[authorPattern.SubexpIndex("name")],
		Email: m[authorPattern.SubexpIndex("email")],
	}, nil
}
