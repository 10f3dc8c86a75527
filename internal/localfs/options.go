package localfs

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// ListOptions configures the behavior of ListDirectory.
type ListOptions struct {
	// IncludeHidden includes dot-files in results.
	IncludeHidden bool

	// Exclude holds doublestar patterns matched against entry names
	// (not paths). Matching entries are left out.
	Exclude []string
}

// Validate reports the first malformed exclude pattern.
func (o ListOptions) Validate() error {
	for _, pattern := range o.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return nil
}

// excluded reports whether name matches any exclude pattern.
// Patterns are validated up front, so match errors are treated as no match.
func (o ListOptions) excluded(name string) bool {
	for _, pattern := range o.Exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
