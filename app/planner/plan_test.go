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

package planner

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postai/flows/model"
)

func request(url string) model.Node {
	return model.Node{
		Kind:    model.NodeKindRequest,
		Request: &model.RequestConfig{URL: url},
	}
}

func start() model.Node {
	return model.Node{Kind: model.NodeKindStart}
}

func planIDs(plan *Plan) []string {
	ids := make([]string, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		ids = append(ids, step.Node.ID)
	}
	return ids
}

func assertGraphError(t *testing.T, err error, kind model.GraphErrorKind) *model.GraphError {
	var graphErr *model.GraphError
	require.True(t, errors.As(err, &graphErr), "expected a GraphError, got %v", err)
	assert.Equal(t, kind, graphErr.Kind)
	return graphErr
}

func TestBuildExecutionPlanLinear(t *testing.T) {
	workflow := &model.Workflow{
		Name:      "linear",
		Variables: map[string]string{"host": "example.com"},
		Nodes: map[string]model.Node{
			"s": start(),
			"a": request("https://{{host}}/a"),
			"b": request("https://{{host}}/b"),
			"e": {Kind: model.NodeKindEnd},
		},
		Edges: []model.Edge{
			{Source: "b", Target: "e"},
			{Source: "a", Target: "b"},
			{Source: "s", Target: "a"},
		},
	}
	plan, err := BuildExecutionPlan(workflow)
	require.NoError(t, err)
	assert.Equal(t, "linear", plan.WorkflowName)
	assert.Equal(t, []string{"s", "a", "b", "e"}, planIDs(plan))
	assert.Equal(t, "example.com", plan.Variables["host"])

	// methods default to GET
	assert.Equal(t, "GET", plan.Steps[1].Node.Request.Method)
	assert.Len(t, plan.Steps[0].Incoming, 0)
	assert.Len(t, plan.Steps[0].Outgoing, 1)
	assert.Equal(t, []model.Edge{{Source: "a", Target: "b"}}, plan.Steps[2].Incoming)
}

func TestBuildExecutionPlanTieBreakByEdgeOrder(t *testing.T) {
	workflow := &model.Workflow{
		Nodes: map[string]model.Node{
			"s":  start(),
			"z":  request("https://example.com/z"),
			"m":  request("https://example.com/m"),
			"a":  request("https://example.com/a"),
			"j":  request("https://example.com/j"),
			"zz": request("https://example.com/zz"),
		},
		Edges: []model.Edge{
			{Source: "s", Target: "z"},
			{Source: "s", Target: "m"},
			{Source: "s", Target: "a"},
			{Source: "z", Target: "zz"},
			{Source: "z", Target: "j"},
			{Source: "a", Target: "j"},
		},
	}
	plan, err := BuildExecutionPlan(workflow)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "z", "m", "a", "zz", "j"}, planIDs(plan))
	assert.Len(t, plan.Steps[5].Incoming, 2)
}

func TestBuildExecutionPlanSnapshot(t *testing.T) {
	workflow := &model.Workflow{
		Nodes: map[string]model.Node{
			"s": start(),
			"a": {
				Kind: model.NodeKindRequest,
				Request: &model.RequestConfig{
					Method:  "post",
					URL:     "https://example.com",
					Headers: map[string]string{"X": "1"},
				},
			},
		},
		Edges: []model.Edge{{Source: "s", Target: "a"}},
	}
	plan, err := BuildExecutionPlan(workflow)
	require.NoError(t, err)

	workflow.Nodes["a"].Request.URL = "https://changed.example.com"
	workflow.Nodes["a"].Request.Headers["X"] = "2"

	node := plan.Steps[1].Node
	assert.Equal(t, "a", node.ID)
	assert.Equal(t, "POST", node.Request.Method)
	assert.Equal(t, "https://example.com", node.Request.URL)
	assert.Equal(t, "1", node.Request.Headers["X"])
	assert.Equal(t, "post", workflow.Nodes["a"].Request.Method)
}

func TestBuildExecutionPlanUnreachableExcluded(t *testing.T) {
	workflow := &model.Workflow{
		Nodes: map[string]model.Node{
			"s":      start(),
			"a":      request("https://example.com/a"),
			"orphan": request("https://example.com/orphan"),
			"island": {Kind: "unknown"},
			"x":      request("https://example.com/x"),
			"y":      request("https://example.com/y"),
		},
		Edges: []model.Edge{
			{Source: "s", Target: "a"},
			{Source: "orphan", Target: "a"},
			// a cycle which cannot be reached from start
			{Source: "x", Target: "y"},
			{Source: "y", Target: "x"},
		},
	}
	plan, err := BuildExecutionPlan(workflow)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "a"}, planIDs(plan))
	assert.Len(t, plan.Steps[1].Incoming, 1)
}

func TestBuildExecutionPlanErrors(t *testing.T) {
	testCases := map[string]struct {
		workflow *model.Workflow
		kind     model.GraphErrorKind
		nodeID   string
	}{
		"no start": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{"a": request("https://example.com")},
			},
			kind: model.GraphErrorNoStart,
		},
		"empty workflow": {
			workflow: &model.Workflow{},
			kind:     model.GraphErrorNoStart,
		},
		"multiple start": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s1": start(),
					"s2": start(),
					"a":  request("https://example.com"),
				},
				Edges: []model.Edge{
					{Source: "s1", Target: "a"},
					{Source: "s2", Target: "a"},
				},
			},
			kind:   model.GraphErrorMultipleStart,
			nodeID: "s2",
		},
		"cycle among requests": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s": start(),
					"a": request("https://example.com/a"),
					"b": request("https://example.com/b"),
					"c": request("https://example.com/c"),
				},
				Edges: []model.Edge{
					{Source: "s", Target: "a"},
					{Source: "a", Target: "b"},
					{Source: "b", Target: "c"},
					{Source: "c", Target: "a"},
				},
			},
			kind:   model.GraphErrorCycleDetected,
			nodeID: "a",
		},
		"self loop": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s": start(),
					"a": request("https://example.com/a"),
				},
				Edges: []model.Edge{
					{Source: "s", Target: "a"},
					{Source: "a", Target: "a"},
				},
			},
			kind:   model.GraphErrorCycleDetected,
			nodeID: "a",
		},
		"edge to unknown node": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{"s": start()},
				Edges: []model.Edge{{Source: "s", Target: "ghost"}},
			},
			kind:   model.GraphErrorInvalidEdge,
			nodeID: "ghost",
		},
		"duplicate edge": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s": start(),
					"a": request("https://example.com/a"),
				},
				Edges: []model.Edge{
					{Source: "s", Target: "a"},
					{Source: "s", Target: "a"},
				},
			},
			kind:   model.GraphErrorInvalidEdge,
			nodeID: "s",
		},
		"unknown branch": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s": start(),
					"a": request("https://example.com/a"),
				},
				Edges: []model.Edge{{Source: "s", Target: "a", Branch: "maybe"}},
			},
			kind:   model.GraphErrorInvalidEdge,
			nodeID: "s",
		},
		"request without url": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s": start(),
					"a": {Kind: model.NodeKindRequest},
				},
				Edges: []model.Edge{{Source: "s", Target: "a"}},
			},
			kind:   model.GraphErrorInvalidNode,
			nodeID: "a",
		},
		"unknown kind": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s": start(),
					"a": {Kind: "script"},
				},
				Edges: []model.Edge{{Source: "s", Target: "a"}},
			},
			kind:   model.GraphErrorInvalidNode,
			nodeID: "a",
		},
		"variable without name": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s": start(),
					"v": {
						Kind:     model.NodeKindVariable,
						Variable: &model.VariableConfig{Name: " ", Value: "1"},
					},
				},
				Edges: []model.Edge{{Source: "s", Target: "v"}},
			},
			kind:   model.GraphErrorInvalidNode,
			nodeID: "v",
		},
		"unknown condition type": {
			workflow: &model.Workflow{
				Nodes: map[string]model.Node{
					"s": start(),
					"c": {
						Kind:      model.NodeKindCondition,
						Condition: &model.ConditionConfig{ConditionType: "matches"},
					},
				},
				Edges: []model.Edge{{Source: "s", Target: "c"}},
			},
			kind:   model.GraphErrorInvalidNode,
			nodeID: "c",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			plan, err := BuildExecutionPlan(tc.workflow)
			assert.Nil(t, plan)
			graphErr := assertGraphError(t, err, tc.kind)
			assert.Equal(t, tc.nodeID, graphErr.NodeID)
		})
	}
}
