package requestcache

import (
	"sort"
	"strings"
)

// Key builds a canonical cache key from an HTTP method, URL and query
// parameters. Parameters are sorted so equivalent requests share one entry
// regardless of map iteration order.
func Key(method, url string, params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	var b strings.Builder
	b.WriteString(method)
	b.WriteString(":")
	b.WriteString(url)
	b.WriteString("?")
	b.WriteString(strings.Join(pairs, "&"))
	return b.String()
}
