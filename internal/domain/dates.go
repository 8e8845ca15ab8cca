package domain

import (
	"strings"
	"time"
)

// DateLayouts — форматы дат, которые принимаются в записях и в фильтрах.
var DateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate разбирает дату в одном из DateLayouts; пробелы по краям игнорируются.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidDate сообщает, читается ли s как дата.
func ValidDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}
