// pkg/matching/matcher.go
package matching

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Similarity возвращает процент совпадения двух строк без учета регистра.
func Similarity(s1, s2 string) int {
	s1, s2 = strings.ToLower(s1), strings.ToLower(s2)
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	if maxLen == 0 {
		return 100
	}
	distance := smetrics.WagnerFischer(s1, s2, 1, 1, 2)
	score := 100 - (distance * 100 / maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// Closest выбирает наиболее похожий вариант. Если лучший результат ниже minScore, возвращается "".
func Closest(candidate string, options []string, minScore int) string {
	best, bestScore := "", -1
	for _, opt := range options {
		score := Similarity(candidate, opt)
		if score > bestScore {
			best, bestScore = opt, score
		}
	}
	if bestScore < minScore {
		return ""
	}
	return best
}
