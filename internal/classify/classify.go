// Package classify maps a line's status text to a notification category.
package classify

import (
	"strings"

	"github.com/rosenban/rosenban/internal/model"
)

// Keyword rules are ordered: the first group with a match wins. Tokens cover
// the Japanese operator phrasing plus English equivalents.
var (
	delayTokens = []string{
		"遅延", "遅れ", "ダイヤ乱れ", "delay",
	}
	suspensionTokens = []string{
		"運転見合わせ", "運休", "運転中止", "見合わせ", "suspend", "halted",
	}
	recoveryTokens = []string{
		"平常運転", "運転再開", "復旧", "normal service", "resumed", "recovered",
	}
)

// Classify returns the notification category for a status and its detail
// text. It is total: any input maps to one of the four categories, with
// unmatched text falling through to general.
func Classify(status, detail string) model.Category {
	text := strings.ToLower(status + " " + detail)
	switch {
	case containsAny(text, delayTokens):
		return model.CategoryDelay
	case containsAny(text, suspensionTokens):
		return model.CategorySuspension
	case containsAny(text, recoveryTokens):
		return model.CategoryRecovery
	default:
		return model.CategoryGeneral
	}
}

func containsAny(text string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}
