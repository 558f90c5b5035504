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

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariables(t *testing.T) {
	variables, err := parseVariables([]string{"host=api.local", "query=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"host":  "api.local",
		"query": "a=b",
		"empty": "",
	}, variables)

	_, err = parseVariables([]string{"novalue"})
	assert.EqualError(t, err, `invalid variable "novalue": expected KEY=VALUE`)

	_, err = parseVariables([]string{"=value"})
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	result := map[string]interface{}{"status": "completed"}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, outputJSON, result))
	assert.Equal(t, "{\n  \"status\": \"completed\"\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, printResult(&buf, outputYAML, result))
	assert.Equal(t, "status: completed\n", buf.String())
}
