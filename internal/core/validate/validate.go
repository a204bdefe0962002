// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"strings"
	"unicode"
)

// maxSimNoLen is the longest terminal phone number the protocol carries
// (10 BCD bytes).
const maxSimNoLen = 20

// SimNo validates a terminal SIM number: non-empty after trimming, no inner
// whitespace, at most 20 characters.
func SimNo(simNo string) error {
	simNo = strings.TrimSpace(simNo)
	if simNo == "" {
		return fmt.Errorf("sim number is required")
	}
	if strings.IndexFunc(simNo, unicode.IsSpace) >= 0 {
		return fmt.Errorf("sim number %q contains whitespace", simNo)
	}
	if len(simNo) > maxSimNoLen {
		return fmt.Errorf("sim number %q is longer than %d characters", simNo, maxSimNoLen)
	}
	return nil
}

// Path validates an API path fragment starts with a slash.
func Path(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("path %q must start with /", p)
	}
	return nil
}
