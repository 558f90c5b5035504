// Copyright 2026 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package processor

import (
	"net/url"
	"strings"

	"github.com/postai/flows/model"
)

type queryPair struct {
	key   string
	value string
}

// MergeQueryParams merges the enabled params into the query string of
// rawURL. Params override the URL's own pairs with the same key; the last
// param with a given key wins. Keys and values are passed through resolve.
// A #fragment stays at the end of the URL.
func MergeQueryParams(
	rawURL string,
	params []model.Param,
	resolve func(string) string,
) string {
	if resolve == nil {
		resolve = func(s string) string { return s }
	}

	var (
		keys      []string
		overrides = map[string]string{}
	)
	for _, param := range params {
		if !param.Enabled {
			continue
		}
		key := resolve(param.Key)
		if key == "" {
			continue
		}
		if _, ok := overrides[key]; !ok {
			keys = append(keys, key)
		}
		overrides[key] = resolve(param.Value)
	}
	if len(overrides) == 0 {
		return rawURL
	}

	rawURL, fragment, hasFragment := strings.Cut(rawURL, "#")
	base, query, _ := strings.Cut(rawURL, "?")
	pairs := make([]queryPair, 0, len(keys))
	for _, pair := range parseQuery(query) {
		if _, ok := overrides[pair.key]; !ok {
			pairs = append(pairs, pair)
		}
	}
	for _, key := range keys {
		pairs = append(pairs, queryPair{key: key, value: overrides[key]})
	}
	merged := base + "?" + encodeQuery(pairs)
	if hasFragment {
		merged += "#" + fragment
	}
	return merged
}

// parseQuery splits a query string into its pairs, in order. Invalid
// escapes are kept as they are.
func parseQuery(query string) []queryPair {
	var pairs []queryPair
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		pairs = append(pairs, queryPair{
			key:   unescape(key),
			value: unescape(value),
		})
	}
	return pairs
}

func unescape(s string) string {
	if unescaped, err := url.QueryUnescape(s); err == nil {
		return unescaped
	}
	return s
}

func encodeQuery(pairs []queryPair) string {
	var sb strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(pair.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(pair.value))
	}
	return sb.String()
}
