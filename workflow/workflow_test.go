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

package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postai/flows/model"
)

const jsonWorkflow = `{
	"name": "create_user",
	"description": "Creates a user and fetches it back.",
	"version": 2,
	"nodes": {
		"start": {"kind": "start"},
		"create": {
			"kind": "request",
			"config": {
				"method": "POST",
				"url": "{{base_url}}/users",
				"body": "{\"name\": \"{{name}}\"}",
				"outputVariable": "created"
			}
		},
		"fetch": {
			"kind": "request",
			"config": {"url": "{{base_url}}/users/{{created.body.id}}"}
		}
	},
	"edges": [
		{"source": "start", "target": "create"},
		{"source": "create", "target": "fetch"}
	]
}`

const yamlWorkflow = `
name: create_user
version: 3
nodes:
  start:
    kind: start
  create:
    kind: request
    config:
      method: POST
      url: "{{base_url}}/users"
edges:
  - source: start
    target: create
`

func TestParseWorkflowFromJSON(t *testing.T) {
	workflow, err := ParseWorkflowFromJSON([]byte(jsonWorkflow))
	require.NoError(t, err)
	assert.Equal(t, "create_user", workflow.Name)
	assert.Equal(t, "Creates a user and fetches it back.", workflow.Description)
	assert.Equal(t, 2, workflow.Version)
	assert.Len(t, workflow.Nodes, 3)
	assert.Equal(t, model.NodeKindRequest, workflow.Nodes["create"].Kind)
	assert.Equal(t, "created", workflow.Nodes["create"].Request.OutputVariable)
	assert.Equal(t, []model.Edge{
		{Source: "start", Target: "create"},
		{Source: "create", Target: "fetch"},
	}, workflow.Edges)
}

func TestParseWorkflowFromInvalidJSON(t *testing.T) {
	workflow, err := ParseWorkflowFromJSON([]byte(`INVALID JSON`))
	assert.Nil(t, workflow)
	assert.Error(t, err)
}

func TestParseWorkflowFromYAML(t *testing.T) {
	workflow, err := ParseWorkflowFromYAML([]byte(yamlWorkflow))
	require.NoError(t, err)
	assert.Equal(t, "create_user", workflow.Name)
	assert.Equal(t, 3, workflow.Version)
	assert.Equal(t, "POST", workflow.Nodes["create"].Request.Method)

	_, err = ParseWorkflowFromYAML([]byte("nodes: [unbalanced"))
	assert.Error(t, err)
}

func TestParseWorkflowFromFile(t *testing.T) {
	dir := t.TempDir()

	_, err := ParseWorkflowFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	fn := filepath.Join(dir, "workflow.txt")
	require.NoError(t, os.WriteFile(fn, []byte(jsonWorkflow), 0644))
	_, err = ParseWorkflowFromFile(fn)
	assert.EqualError(t, err, "unsupported workflow document "+fn)
}

func TestGetWorkflowsFromPath(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"v2.json":     jsonWorkflow,
		"v3.yml":      yamlWorkflow,
		"broken.json": `{`,
		"notes.md":    "# notes",
	}
	for name, data := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0644)
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	workflows, err := GetWorkflowsFromPath(dir)
	require.NoError(t, err)
	assert.Len(t, workflows, 1)
	assert.Equal(t, 3, workflows["create_user"].Version)

	_, err = GetWorkflowsFromPath(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
