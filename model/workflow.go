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

package model

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NodeKind is the discriminator of the node variants
type NodeKind string

// Kinds of nodes
const (
	NodeKindStart     NodeKind = "start"
	NodeKindRequest   NodeKind = "request"
	NodeKindCondition NodeKind = "condition"
	NodeKindDelay     NodeKind = "delay"
	NodeKindEnd       NodeKind = "end"
	NodeKindVariable  NodeKind = "variable"
)

// Branches of the edges leaving a condition node
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// Condition types
const (
	ConditionEquals      = "equals"
	ConditionNotEquals   = "not_equals"
	ConditionContains    = "contains"
	ConditionGreaterThan = "greater_than"
	ConditionLessThan    = "less_than"
	ConditionIsEmpty     = "is_empty"
	ConditionIsNotEmpty  = "is_not_empty"
)

// DefaultMethod is used for request nodes which do not specify a method
const DefaultMethod = "GET"

// DefaultResultLabel labels the result of end nodes which set no label
const DefaultResultLabel = "Result"

// Workflow stores the definition of a workflow graph
type Workflow struct {
	Name        string            `json:"name" bson:"_id" yaml:"name"`
	Description string            `json:"description" bson:"description" yaml:"description"`
	Version     int               `json:"version" bson:"version" yaml:"version"`
	Variables   map[string]string `json:"variables,omitempty" bson:"variables,omitempty" yaml:"variables,omitempty"`
	Nodes       map[string]Node   `json:"nodes" bson:"nodes" yaml:"nodes"`
	Edges       []Edge            `json:"edges" bson:"edges" yaml:"edges"`
}

// Edge is a directed dependency between two nodes. Branch is only
// meaningful on edges leaving a condition node.
type Edge struct {
	Source string `json:"source" bson:"source" yaml:"source"`
	Target string `json:"target" bson:"target" yaml:"target"`
	Branch string `json:"branch,omitempty" bson:"branch,omitempty" yaml:"branch,omitempty"`
}

// Node is a unit of work in a workflow. Exactly one of the configuration
// payloads is set, the one matching Kind; start nodes carry none and the
// configuration of end nodes is optional.
type Node struct {
	// ID is the key of the node in Workflow.Nodes; it is populated when
	// an execution plan is built.
	ID        string           `json:"-" bson:"-" yaml:"-"`
	Kind      NodeKind         `json:"kind" bson:"kind" yaml:"kind"`
	Request   *RequestConfig   `json:"-" bson:"request,omitempty" yaml:"-"`
	Condition *ConditionConfig `json:"-" bson:"condition,omitempty" yaml:"-"`
	Delay     *DelayConfig     `json:"-" bson:"delay,omitempty" yaml:"-"`
	Variable  *VariableConfig  `json:"-" bson:"variable,omitempty" yaml:"-"`
	End       *EndConfig       `json:"-" bson:"end,omitempty" yaml:"-"`
}

// RequestConfig stores the parameters of the HTTP call of a request node
type RequestConfig struct {
	Method  string            `json:"method" bson:"method" yaml:"method"`
	URL     string            `json:"url" bson:"url" yaml:"url"`
	Params  []Param           `json:"params,omitempty" bson:"params,omitempty" yaml:"params,omitempty"`
	Headers map[string]string `json:"headers,omitempty" bson:"headers,omitempty" yaml:"headers,omitempty"`
	Body    *string           `json:"body,omitempty" bson:"body,omitempty" yaml:"body,omitempty"`
	// Timeout in seconds; zero selects the configured default
	Timeout int `json:"timeout,omitempty" bson:"timeout,omitempty" yaml:"timeout,omitempty"`
	// OutputVariable exposes the response to the descendants of the node
	OutputVariable string `json:"outputVariable,omitempty" bson:"output_variable,omitempty" yaml:"outputVariable,omitempty"`
}

// Param is a query parameter declared on a request node
type Param struct {
	Key     string `json:"key" bson:"key" yaml:"key"`
	Value   string `json:"value" bson:"value" yaml:"value"`
	Enabled bool   `json:"enabled" bson:"enabled" yaml:"enabled"`
}

// ConditionConfig compares two resolved operands
type ConditionConfig struct {
	ConditionType string `json:"conditionType" bson:"condition_type" yaml:"conditionType"`
	Left          string `json:"left" bson:"left" yaml:"left"`
	Right         string `json:"right" bson:"right" yaml:"right"`
}

// DelayConfig pauses a branch
type DelayConfig struct {
	DelayMs int `json:"delayMs" bson:"delay_ms" yaml:"delayMs"`
}

// VariableConfig sets a variable for the descendants of the node. Value
// is resolved when the node runs.
type VariableConfig struct {
	Name  string `json:"name" bson:"name" yaml:"name"`
	Value string `json:"value" bson:"value" yaml:"value"`
}

// EndConfig reports a value as a result of the run
type EndConfig struct {
	ResultVariable string `json:"resultVariable,omitempty" bson:"result_variable,omitempty" yaml:"resultVariable,omitempty"`
	ResultLabel    string `json:"resultLabel,omitempty" bson:"result_label,omitempty" yaml:"resultLabel,omitempty"`
}

type paramDocument Param

// UnmarshalJSON decodes a param; a missing "enabled" flag means enabled.
func (p *Param) UnmarshalJSON(data []byte) error {
	doc := paramDocument{Enabled: true}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*p = Param(doc)
	return nil
}

// UnmarshalYAML decodes a param; a missing "enabled" flag means enabled.
func (p *Param) UnmarshalYAML(value *yaml.Node) error {
	doc := paramDocument{Enabled: true}
	if err := value.Decode(&doc); err != nil {
		return err
	}
	*p = Param(doc)
	return nil
}

// nodeDocument is the on-wire shape of a node: {kind, config}
type nodeDocument struct {
	Kind   NodeKind        `json:"kind"`
	Config json.RawMessage `json:"config,omitempty"`
}

// MarshalJSON encodes the node as {kind, config}
func (n Node) MarshalJSON() ([]byte, error) {
	var (
		config interface{}
		doc    = nodeDocument{Kind: n.Kind}
	)
	switch n.Kind {
	case NodeKindRequest:
		config = n.Request
	case NodeKindCondition:
		config = n.Condition
	case NodeKindDelay:
		config = n.Delay
	case NodeKindVariable:
		config = n.Variable
	case NodeKindEnd:
		if n.End != nil {
			config = n.End
		}
	}
	if config != nil {
		raw, err := json.Marshal(config)
		if err != nil {
			return nil, err
		}
		doc.Config = raw
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a node from {kind, config}
func (n *Node) UnmarshalJSON(data []byte) error {
	var doc nodeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	node := Node{Kind: NodeKind(strings.ToLower(string(doc.Kind)))}
	hasConfig := len(doc.Config) > 0 && string(doc.Config) != "null"
	var target interface{}
	switch node.Kind {
	case NodeKindRequest:
		node.Request = &RequestConfig{}
		target = node.Request
	case NodeKindCondition:
		node.Condition = &ConditionConfig{}
		target = node.Condition
	case NodeKindDelay:
		node.Delay = &DelayConfig{}
		target = node.Delay
	case NodeKindVariable:
		node.Variable = &VariableConfig{}
		target = node.Variable
	case NodeKindEnd:
		if hasConfig {
			node.End = &EndConfig{}
			target = node.End
		}
	}
	if target != nil && hasConfig {
		if err := json.Unmarshal(doc.Config, target); err != nil {
			return errors.Wrapf(err, "invalid %s node configuration", node.Kind)
		}
	}
	*n = node
	return nil
}

// UnmarshalYAML decodes a node from {kind, config}
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var doc struct {
		Kind   NodeKind  `yaml:"kind"`
		Config yaml.Node `yaml:"config"`
	}
	if err := value.Decode(&doc); err != nil {
		return err
	}
	node := Node{Kind: NodeKind(strings.ToLower(string(doc.Kind)))}
	var target interface{}
	switch node.Kind {
	case NodeKindRequest:
		node.Request = &RequestConfig{}
		target = node.Request
	case NodeKindCondition:
		node.Condition = &ConditionConfig{}
		target = node.Condition
	case NodeKindDelay:
		node.Delay = &DelayConfig{}
		target = node.Delay
	case NodeKindVariable:
		node.Variable = &VariableConfig{}
		target = node.Variable
	case NodeKindEnd:
		if doc.Config.Kind != 0 {
			node.End = &EndConfig{}
			target = node.End
		}
	}
	if target != nil && doc.Config.Kind != 0 {
		if err := doc.Config.Decode(target); err != nil {
			return errors.Wrapf(err, "invalid %s node configuration", node.Kind)
		}
	}
	*n = node
	return nil
}

// Copy returns a deep copy of the node
func (n Node) Copy() Node {
	ret := n
	if n.Request != nil {
		req := *n.Request
		if n.Request.Params != nil {
			req.Params = make([]Param, len(n.Request.Params))
			copy(req.Params, n.Request.Params)
		}
		if n.Request.Headers != nil {
			req.Headers = make(map[string]string, len(n.Request.Headers))
			for key, value := range n.Request.Headers {
				req.Headers[key] = value
			}
		}
		if n.Request.Body != nil {
			body := *n.Request.Body
			req.Body = &body
		}
		ret.Request = &req
	}
	if n.Condition != nil {
		condition := *n.Condition
		ret.Condition = &condition
	}
	if n.Delay != nil {
		delay := *n.Delay
		ret.Delay = &delay
	}
	if n.Variable != nil {
		variable := *n.Variable
		ret.Variable = &variable
	}
	if n.End != nil {
		end := *n.End
		ret.End = &end
	}
	return ret
}

// Validate checks the workflow carries the fields required to store it
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return errors.New("Workflow missing name")
	}
	for _, edge := range w.Edges {
		if edge.Source == "" || edge.Target == "" {
			return errors.New("Workflow edge missing source or target")
		}
	}
	return nil
}
