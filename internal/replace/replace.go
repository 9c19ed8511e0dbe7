// Package replace substitutes build-time constants into source text.
package replace

import (
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

type Replacer struct {
	open, close string
	values      map[string]string
	replacer    *strings.Replacer
}

// New builds a Replacer matching <open>key<close> for every key in values.
// Later maps override earlier ones.
func New(open, close string, values ...map[string]string) *Replacer {
	merged := make(map[string]string)
	for _, v := range values {
		for key, value := range v {
			merged[key] = value
		}
	}
	keys := maps.Keys(merged)
	// longest first so that a key never shadows a longer one sharing its prefix
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, open+key+close, merged[key])
	}
	return &Replacer{
		open:     open,
		close:    close,
		values:   merged,
		replacer: strings.NewReplacer(pairs...),
	}
}

// Apply replaces every delimited key in one pass; inserted values are not rescanned.
func (r *Replacer) Apply(src string) string {
	if r == nil || len(r.values) == 0 {
		return src
	}
	return r.replacer.Replace(src)
}

// Contains is a cheap check used to skip files without any placeholder.
func (r *Replacer) Contains(src string) bool {
	if r == nil || len(r.values) == 0 {
		return false
	}
	if r.open != "" {
		return strings.Contains(src, r.open)
	}
	for key := range r.values {
		if strings.Contains(src, key+r.close) {
			return true
		}
	}
	return false
}

// Keys returns the placeholders in sorted order.
func (r *Replacer) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for key := range r.values {
		keys = append(keys, r.open+key+r.close)
	}
	sort.Strings(keys)
	return keys
}
