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

import "fmt"

// GraphErrorKind enumerates the structural rules a workflow graph can break
type GraphErrorKind int

const (
	GraphErrorNoStart GraphErrorKind = iota
	GraphErrorMultipleStart
	GraphErrorCycleDetected
	GraphErrorInvalidEdge
	GraphErrorInvalidNode
)

func (k GraphErrorKind) String() string {
	switch k {
	case GraphErrorNoStart:
		return "no start node"
	case GraphErrorMultipleStart:
		return "multiple start nodes"
	case GraphErrorCycleDetected:
		return "cycle detected"
	case GraphErrorInvalidEdge:
		return "invalid edge"
	case GraphErrorInvalidNode:
		return "invalid node"
	}
	return "unknown"
}

// GraphError is a structural error of a workflow graph. It is raised
// before anything is dispatched.
type GraphError struct {
	Kind    GraphErrorKind
	NodeID  string
	Message string
}

func (e *GraphError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid workflow graph: %s", e.Kind)
	}
	return fmt.Sprintf("invalid workflow graph: %s: %s", e.Kind, e.Message)
}

// NewGraphError returns a new GraphError
func NewGraphError(kind GraphErrorKind, nodeID string, format string, args ...interface{}) *GraphError {
	return &GraphError{
		Kind:    kind,
		NodeID:  nodeID,
		Message: fmt.Sprintf(format, args...),
	}
}
