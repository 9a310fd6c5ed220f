package llm

import "strings"

// FirstObject returns the first balanced top-level {...} span in s. Braces
// inside JSON strings do not count. ok is false when that object never closes.
func FirstObject(s string) (span string, ok bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := matchObject(s, start)
	if end < 0 {
		return "", false
	}
	return s[start : end+1], true
}

func matchObject(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
