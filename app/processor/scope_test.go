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

func TestScopeResolve(t *testing.T) {
	scope := NewScope(map[string]string{
		"token":       "secret",
		"user.status": "shadowed",
	})
	scope = scope.With("user", &Output{
		Status:     201,
		StatusText: "Created",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"id": 42, "name": "alice", "tags": ["a", "b"], "ratio": 0.5}`,
	})

	testCases := map[string]string{
		"Bearer {{token}}":              "Bearer secret",
		"{{user.status}}":               "shadowed",
		"{{user.statusText}}":           "Created",
		"{{user.headers.Content-Type}}": "application/json",
		"{{user.headers.content-type}}": "application/json",
		"/users/{{user.body.id}}":       "/users/42",
		"{{user.body.name}}":            "alice",
		"{{user.body.ratio}}":           "0.5",
		"{{user.body.tags}}":            `["a","b"]`,
		"{{user.body.missing}}":         "{{user.body.missing}}",
		"{{user.headers.X-Missing}}":    "{{user.headers.X-Missing}}",
		"{{other.body}}":                "{{other.body}}",
		"%7B%7Btoken%7D%7D":             "secret",
	}
	for text, expected := range testCases {
		t.Run(text, func(t *testing.T) {
			assert.Equal(t, expected, scope.Resolve(text))
		})
	}
}

func TestScopeWithDoesNotLeak(t *testing.T) {
	root := NewScope(map[string]string{})
	left := root.With("left", &Output{Status: 200})
	right := root.With("right", &Output{Status: 500})

	assert.Equal(t, "200", left.Resolve("{{left.status}}"))
	assert.Equal(t, "{{right.status}}", left.Resolve("{{right.status}}"))
	assert.Equal(t, "{{left.status}}", right.Resolve("{{left.status}}"))
	assert.Equal(t, "{{left.status}}", root.Resolve("{{left.status}}"))

	joined := left.Merge(right)
	assert.Equal(t, "200 500", joined.Resolve("{{left.status}} {{right.status}}"))
	assert.Equal(t, left, left.Merge(nil))
}

func TestScopeWithVariable(t *testing.T) {
	vars := map[string]string{"env": "prod", "region": "eu"}
	root := NewScope(vars)
	left := root.WithVariable("env", "staging").WithVariable("", "ignored")
	right := root.WithVariable("token", "abc")

	assert.Equal(t, "staging/eu", left.Resolve("{{env}}/{{region}}"))
	assert.Equal(t, "{{token}}", left.Resolve("{{token}}"))
	assert.Equal(t, "prod", root.Resolve("{{env}}"))
	assert.Equal(t, "prod", vars["env"])
	assert.Equal(t, "prod abc", right.Resolve("{{env}} {{token}}"))

	joined := left.Merge(right)
	assert.Equal(t, "staging abc", joined.Resolve("{{env}} {{token}}"))

	withOutput := right.With("auth", &Output{Body: `{"token": "xyz"}`})
	value, ok := withOutput.Lookup("token")
	assert.True(t, ok)
	assert.Equal(t, "abc", value)
	assert.Equal(t, "xyz", withOutput.WithVariable("token", "{{auth.body.token}}").
		Resolve("{{auth.body.token}}"))
}

func TestConvertAnythingToString(t *testing.T) {
	value, err := ConvertAnythingToString("text")
	assert.NoError(t, err)
	assert.Equal(t, "text", value)

	value, err = ConvertAnythingToString(float64(3))
	assert.NoError(t, err)
	assert.Equal(t, "3", value)

	value, err = ConvertAnythingToString(map[string]interface{}{"a": true})
	assert.NoError(t, err)
	assert.Equal(t, `{"a":true}`, value)

	_, err = ConvertAnythingToString(make(chan int))
	assert.Error(t, err)
}
