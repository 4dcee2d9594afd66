package utils

import "strings"

// NonEmpty trims every value and drops the blank ones.
func NonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SplitList splits a separated list, trimming and dropping blank entries.
func SplitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NonEmpty(strings.Split(s, sep))
}
