package http

import (
	"strings"

	xutil "SignalHub/pkg/util"
)

// SplitList splits a comma separated query value, dropping blanks.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return xutil.SplitAndTrim(s, ",")
}
