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
	"sort"
	"strings"

	"github.com/postai/flows/model"
)

// Plan is the immutable, topologically ordered snapshot of the part of a
// workflow reachable from its start node
type Plan struct {
	WorkflowName string
	Variables    map[string]string
	Steps        []Step
}

// Step is one node of a plan with the edges connecting it to the other
// reachable nodes
type Step struct {
	Node     model.Node
	Incoming []model.Edge
	Outgoing []model.Edge
}

// BuildExecutionPlan validates the structure of the workflow and returns
// its execution plan
func BuildExecutionPlan(workflow *model.Workflow) (*Plan, error) {
	start, err := findStart(workflow)
	if err != nil {
		return nil, err
	}
	outgoing, err := checkEdges(workflow)
	if err != nil {
		return nil, err
	}

	reachable := reachableFrom(start, outgoing)
	nodes := make(map[string]model.Node, len(reachable))
	for id := range reachable {
		node, err := snapshot(id, workflow.Nodes[id])
		if err != nil {
			return nil, err
		}
		nodes[id] = node
	}

	order, err := topologicalOrder(start, workflow.Edges, reachable)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		WorkflowName: workflow.Name,
		Variables:    make(map[string]string, len(workflow.Variables)),
		Steps:        make([]Step, 0, len(order)),
	}
	for key, value := range workflow.Variables {
		plan.Variables[key] = value
	}
	index := make(map[string]int, len(order))
	for i, id := range order {
		index[id] = i
		plan.Steps = append(plan.Steps, Step{Node: nodes[id]})
	}
	for _, edge := range workflow.Edges {
		if !reachable[edge.Source] {
			continue
		}
		source, target := index[edge.Source], index[edge.Target]
		plan.Steps[source].Outgoing = append(plan.Steps[source].Outgoing, edge)
		plan.Steps[target].Incoming = append(plan.Steps[target].Incoming, edge)
	}
	return plan, nil
}

func findStart(workflow *model.Workflow) (string, error) {
	var starts []string
	for id, node := range workflow.Nodes {
		if model.NodeKind(strings.ToLower(string(node.Kind))) == model.NodeKindStart {
			starts = append(starts, id)
		}
	}
	sort.Strings(starts)
	switch len(starts) {
	case 0:
		return "", model.NewGraphError(model.GraphErrorNoStart, "",
			"the workflow has no start node")
	case 1:
		return starts[0], nil
	default:
		return "", model.NewGraphError(model.GraphErrorMultipleStart, starts[1],
			"the workflow has %d start nodes: %s", len(starts), strings.Join(starts, ", "))
	}
}

func checkEdges(workflow *model.Workflow) (map[string][]string, error) {
	type edgeKey struct{ source, target string }
	seen := make(map[edgeKey]struct{}, len(workflow.Edges))
	outgoing := make(map[string][]string, len(workflow.Nodes))
	for _, edge := range workflow.Edges {
		if _, ok := workflow.Nodes[edge.Source]; !ok {
			return nil, model.NewGraphError(model.GraphErrorInvalidEdge, edge.Source,
				"edge %s -> %s references unknown node %q", edge.Source, edge.Target, edge.Source)
		}
		if _, ok := workflow.Nodes[edge.Target]; !ok {
			return nil, model.NewGraphError(model.GraphErrorInvalidEdge, edge.Target,
				"edge %s -> %s references unknown node %q", edge.Source, edge.Target, edge.Target)
		}
		if edge.Source == edge.Target {
			return nil, model.NewGraphError(model.GraphErrorCycleDetected, edge.Source,
				"node %q has an edge to itself", edge.Source)
		}
		switch edge.Branch {
		case "", model.BranchTrue, model.BranchFalse:
		default:
			return nil, model.NewGraphError(model.GraphErrorInvalidEdge, edge.Source,
				"edge %s -> %s has unknown branch %q", edge.Source, edge.Target, edge.Branch)
		}
		key := edgeKey{edge.Source, edge.Target}
		if _, ok := seen[key]; ok {
			return nil, model.NewGraphError(model.GraphErrorInvalidEdge, edge.Source,
				"duplicate edge %s -> %s", edge.Source, edge.Target)
		}
		seen[key] = struct{}{}
		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
	}
	return outgoing, nil
}

func reachableFrom(start string, outgoing map[string][]string) map[string]bool {
	reachable := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, target := range outgoing[id] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}

// snapshot validates a reachable node and returns a deep copy of it
func snapshot(id string, node model.Node) (model.Node, error) {
	ret := node.Copy()
	ret.ID = id
	ret.Kind = model.NodeKind(strings.ToLower(string(node.Kind)))
	switch ret.Kind {
	case model.NodeKindStart, model.NodeKindEnd:
	case model.NodeKindRequest:
		if ret.Request == nil || ret.Request.URL == "" {
			return ret, model.NewGraphError(model.GraphErrorInvalidNode, id,
				"request node %q has no url", id)
		}
		ret.Request.Method = strings.ToUpper(strings.TrimSpace(ret.Request.Method))
		if ret.Request.Method == "" {
			ret.Request.Method = model.DefaultMethod
		}
	case model.NodeKindCondition:
		if ret.Condition == nil {
			return ret, model.NewGraphError(model.GraphErrorInvalidNode, id,
				"condition node %q has no configuration", id)
		}
		if ret.Condition.ConditionType == "" {
			ret.Condition.ConditionType = model.ConditionEquals
		}
		if !isConditionType(ret.Condition.ConditionType) {
			return ret, model.NewGraphError(model.GraphErrorInvalidNode, id,
				"condition node %q has unknown condition type %q",
				id, ret.Condition.ConditionType)
		}
	case model.NodeKindVariable:
		if ret.Variable == nil || strings.TrimSpace(ret.Variable.Name) == "" {
			return ret, model.NewGraphError(model.GraphErrorInvalidNode, id,
				"variable node %q has no name", id)
		}
		ret.Variable.Name = strings.TrimSpace(ret.Variable.Name)
	case model.NodeKindDelay:
		if ret.Delay == nil || ret.Delay.DelayMs < 0 {
			return ret, model.NewGraphError(model.GraphErrorInvalidNode, id,
				"delay node %q has no valid delay", id)
		}
	default:
		return ret, model.NewGraphError(model.GraphErrorInvalidNode, id,
			"node %q has unknown kind %q", id, node.Kind)
	}
	return ret, nil
}

func isConditionType(conditionType string) bool {
	switch conditionType {
	case model.ConditionEquals, model.ConditionNotEquals, model.ConditionContains,
		model.ConditionGreaterThan, model.ConditionLessThan,
		model.ConditionIsEmpty, model.ConditionIsNotEmpty:
		return true
	}
	return false
}

// topologicalOrder sorts the reachable nodes with Kahn's algorithm. Nodes
// that become ready together are ordered by the declaration order of the
// edges which released them.
func topologicalOrder(
	start string,
	edges []model.Edge,
	reachable map[string]bool,
) ([]string, error) {
	inDegree := make(map[string]int, len(reachable))
	children := make(map[string][]string, len(reachable))
	for _, edge := range edges {
		if !reachable[edge.Source] {
			continue
		}
		inDegree[edge.Target]++
		children[edge.Source] = append(children[edge.Source], edge.Target)
	}

	order := make([]string, 0, len(reachable))
	queue := []string{}
	if inDegree[start] == 0 {
		queue = append(queue, start)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, child := range children[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(reachable) {
		var cyclic []string
		for id := range reachable {
			if inDegree[id] > 0 {
				cyclic = append(cyclic, id)
			}
		}
		sort.Strings(cyclic)
		nodeID := ""
		if len(cyclic) > 0 {
			nodeID = cyclic[0]
		}
		return nil, model.NewGraphError(model.GraphErrorCycleDetected, nodeID,
			"the workflow contains a cycle through %s", strings.Join(cyclic, ", "))
	}
	return order, nil
}
