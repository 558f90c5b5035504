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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	variables := map[string]string{
		"host":      "api.example.com",
		"user.name": "alice",
		"empty":     "",
	}
	testCases := map[string]struct {
		text     string
		expected string
	}{
		"no placeholders": {
			text:     "https://example.com/path",
			expected: "https://example.com/path",
		},
		"single": {
			text:     "https://{{host}}/users",
			expected: "https://api.example.com/users",
		},
		"repeated": {
			text:     "{{host}}/{{host}}",
			expected: "api.example.com/api.example.com",
		},
		"dotted name": {
			text:     "hello {{user.name}}",
			expected: "hello alice",
		},
		"empty value": {
			text:     "a{{empty}}b",
			expected: "ab",
		},
		"unresolved kept verbatim": {
			text:     "{{host}}/{{missing}}",
			expected: "api.example.com/{{missing}}",
		},
		"malformed kept verbatim": {
			text:     "{{host}/{host}}/{host}",
			expected: "{{host}/{host}}/{host}",
		},
		"empty placeholder": {
			text:     "{{}}",
			expected: "{{}}",
		},
		"empty text": {
			text:     "",
			expected: "",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Resolve(tc.text, variables))
		})
	}
}

func TestResolveNilVariables(t *testing.T) {
	assert.Equal(t, "{{a}}", Resolve("{{a}}", nil))
}

func TestResolveIsIdempotentWithoutPlaceholders(t *testing.T) {
	variables := map[string]string{"a": "1"}
	for _, text := range []string{
		"",
		"plain text",
		"{a}",
		"{{a}",
		"https://example.com/?q=%7Bx%7D",
	} {
		once := Resolve(text, variables)
		assert.Equal(t, once, Resolve(once, variables), text)
	}
}

func TestHasVariables(t *testing.T) {
	assert.True(t, HasVariables("{{user.name}}"))
	assert.True(t, HasVariables("https://{{host}}/path"))
	assert.False(t, HasVariables("{username}"))
	assert.False(t, HasVariables("{{username}"))
	assert.False(t, HasVariables("{username}}"))
	assert.False(t, HasVariables("{{}}"))
	assert.False(t, HasVariables(""))
}

func TestDecodePlaceholderEncoding(t *testing.T) {
	assert.Equal(t,
		"https://example.com/{{id}}?q={{query}}",
		DecodePlaceholderEncoding("https://example.com/%7B%7Bid%7D%7D?q=%7b%7bquery%7d%7d"),
	)
	assert.Equal(t, "%7Bsingle%7D", DecodePlaceholderEncoding("%7Bsingle%7D"))
	assert.Equal(t, "", DecodePlaceholderEncoding(""))
}
