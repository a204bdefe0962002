package msgscope

import "github.com/bmatcuk/doublestar/v4"

// matchSimPattern checks if simNo matches the glob pattern.
// Empty pattern matches all SIM numbers.
func matchSimPattern(pattern, simNo string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	return doublestar.Match(pattern, simNo)
}
