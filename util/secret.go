package util

import "fmt"

// MaskSecret renders a credential for logs: the first visible characters
// and the length. Short or empty secrets reveal nothing.
func MaskSecret(s string, visible int) string {
	switch {
	case s == "":
		return "<unset>"
	case len(s) <= visible*2:
		return fmt.Sprintf("***(%d)", len(s))
	default:
		return fmt.Sprintf("%s***(%d)", s[:visible], len(s))
	}
}
