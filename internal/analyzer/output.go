package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/resume-analyzer/internal/prompts"
)

const downloadTimeLayout = "20060102-150405"

// DownloadName returns e.g. "percentage-match_20260301-091500.txt".
func DownloadName(t prompts.Type, at time.Time) string {
	name := strings.TrimSpace(string(t))
	if name == "" {
		name = "analysis"
	}
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("%s_%s.txt", name, at.Format(downloadTimeLayout))
}

var percentPattern = regexp.MustCompile(`(\d{1,3}(?:[.,]\d+)?)\s*%`)

// ParseMatchPercent returns the first percentage in text that lies in
// [0, 100].
func ParseMatchPercent(text string) (float64, bool) {
	for _, m := range percentPattern.FindAllStringSubmatch(text, -1) {
		f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		if f >= 0 && f <= 100 {
			return f, true
		}
	}
	return 0, false
}
