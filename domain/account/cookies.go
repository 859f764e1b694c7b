package account

import (
	"maps"
	"slices"
	"strings"
)

// CookieSet maps cookie names to values.
type CookieSet map[string]string

// Normalize converts credentials into a CookieSet.
// It never fails: unsupported or malformed input yields an empty set.
func Normalize(c Credentials) CookieSet {
	switch c.form {
	case FormMapping:
		if len(c.mapping) == 0 {
			return CookieSet{}
		}
		return CookieSet(maps.Clone(c.mapping))
	case FormDelimited:
		return parseDelimited(c.raw)
	default:
		return CookieSet{}
	}
}

func parseDelimited(raw string) CookieSet {
	set := CookieSet{}
	for _, segment := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(segment), "=")
		if !ok {
			continue
		}
		set[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return set
}

// Merge layers the given sets in order; later sets overwrite earlier ones.
// Callers pass WAF cookies first so user cookies win on a name clash.
func Merge(sets ...CookieSet) CookieSet {
	merged := CookieSet{}
	for _, s := range sets {
		maps.Copy(merged, s)
	}
	return merged
}

// Names returns the cookie names in sorted order.
func (s CookieSet) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Missing returns the names from required that are absent in s, in input order.
func (s CookieSet) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := s[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
