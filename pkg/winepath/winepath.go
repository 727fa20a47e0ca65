// Package winepath converts host paths into the guest's path syntax.
package winepath

import (
	"strings"

	"xlcompat/pkg/launcher"
)

// Translator runs winepath inside one prefix.
// Immutable
type Translator struct {
	runner launcher.Runner
}

func New(r launcher.Runner) *Translator {
	return &Translator{runner: r}
}

// ToWindows returns the guest path for hostPath, e.g. /home/u/game becomes
// Z:\home\u\game. winepath may print warnings first, so only the last
// non-empty line counts. An empty string means winepath printed nothing.
func (t *Translator) ToWindows(hostPath string) (string, error) {
	out, err := launcher.Capture(t.runner, "winepath", "--windows", hostPath)
	if err != nil {
		return "", err
	}
	return LastLine(out), nil
}

// LastLine returns the last non-empty line of output without its line ending.
func LastLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimRight(lines[i], "\r"); strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}
