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
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// RunStatus is the lifecycle status of a workflow run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunOutcome summarizes how a finished run went
type RunOutcome string

const (
	RunOutcomeAllSucceeded    RunOutcome = "all_succeeded"
	RunOutcomePartialFailure  RunOutcome = "partial_failure"
	RunOutcomeStructuralError RunOutcome = "structural_error"
)

// NodeState is the state of a node within a run
type NodeState string

const (
	NodeStatePending     NodeState = "pending"
	NodeStateResolving   NodeState = "resolving"
	NodeStateDispatching NodeState = "dispatching"
	NodeStateSucceeded   NodeState = "succeeded"
	NodeStateFailed      NodeState = "failed"
	NodeStateSkipped     NodeState = "skipped"
)

// SkipReason tells why a node was not executed
type SkipReason string

const (
	SkipReasonAncestorFailed SkipReason = "ancestor_failed"
	SkipReasonBranchNotTaken SkipReason = "branch_not_taken"
	SkipReasonCancelled      SkipReason = "cancelled"
)

var (
	// ErrInvalidStatus is the error for invalid status
	ErrInvalidStatus = errors.New("Invalid status")
)

// NodeResult is the outcome of one node of a run
type NodeResult struct {
	NodeID     string     `json:"node_id" bson:"node_id" yaml:"node_id"`
	Kind       NodeKind   `json:"kind" bson:"kind" yaml:"kind"`
	State      NodeState  `json:"state" bson:"state" yaml:"state"`
	SkipReason SkipReason `json:"skip_reason,omitempty" bson:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	// Branch is the branch taken by a condition node
	Branch     string `json:"branch,omitempty" bson:"branch,omitempty" yaml:"branch,omitempty"`
	HistoryID  string `json:"history_id,omitempty" bson:"history_id,omitempty" yaml:"history_id,omitempty"`
	StatusCode *int   `json:"status_code,omitempty" bson:"status_code,omitempty" yaml:"status_code,omitempty"`
	Error      string `json:"error,omitempty" bson:"error,omitempty" yaml:"error,omitempty"`
	// Variable and Value are the variable set by a variable node, or the
	// result reported by an end node
	Variable string  `json:"variable,omitempty" bson:"variable,omitempty" yaml:"variable,omitempty"`
	Value    *string `json:"value,omitempty" bson:"value,omitempty" yaml:"value,omitempty"`
	// Duration in milliseconds
	Duration int64 `json:"duration" bson:"duration" yaml:"duration"`
}

// EndResult is the value reported by an end node which was reached. Value
// is nil when the result variable did not resolve.
type EndResult struct {
	NodeID   string  `json:"node_id" bson:"node_id" yaml:"node_id"`
	Label    string  `json:"label" bson:"label" yaml:"label"`
	Variable string  `json:"variable,omitempty" bson:"variable,omitempty" yaml:"variable,omitempty"`
	Value    *string `json:"value" bson:"value" yaml:"value"`
}

// RunResult is what the engine produces for one execution of a plan
type RunResult struct {
	Outcome RunOutcome      `json:"outcome" yaml:"outcome"`
	Nodes   []NodeResult    `json:"nodes" yaml:"nodes"`
	Results []EndResult     `json:"results,omitempty" yaml:"results,omitempty"`
	History []HistoryDetail `json:"history" yaml:"history"`
}

// Run is the persisted record of a workflow execution
type Run struct {
	ID           string            `json:"id" bson:"_id" yaml:"id"`
	WorkflowName string            `json:"workflow_name" bson:"workflow_name" yaml:"workflow_name"`
	Status       RunStatus         `json:"status" bson:"status" yaml:"status"`
	Outcome      RunOutcome        `json:"outcome,omitempty" bson:"outcome,omitempty" yaml:"outcome,omitempty"`
	Variables    map[string]string `json:"input_variables" bson:"input_variables" yaml:"input_variables"`
	Nodes        []NodeResult      `json:"nodes" bson:"nodes" yaml:"nodes"`
	Results      []EndResult       `json:"results,omitempty" bson:"results,omitempty" yaml:"results,omitempty"`
	Error        string            `json:"error,omitempty" bson:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at" bson:"created_at" yaml:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty" bson:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty" bson:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// RunRequest is the message queued for asynchronous execution. Workflow is
// set for ad-hoc documents which are not registered.
type RunRequest struct {
	RunID        string            `json:"run_id"`
	WorkflowName string            `json:"workflow_name"`
	Variables    map[string]string `json:"variables,omitempty"`
	Workflow     *Workflow         `json:"workflow,omitempty"`
}

// NewRunID returns a new, lexicographically sortable, run ID
func NewRunID() string {
	return ulid.Make().String()
}

// NewRun returns a pending run for the given request
func NewRun(req *RunRequest) *Run {
	if req.RunID == "" {
		req.RunID = NewRunID()
	}
	return &Run{
		ID:           req.RunID,
		WorkflowName: req.WorkflowName,
		Status:       RunStatusPending,
		Variables:    req.Variables,
		CreatedAt:    time.Now().UTC(),
	}
}

// Finished reports whether the run reached a terminal status
func (r *Run) Finished() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusPartial, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// StatusForOutcome maps a run outcome to its terminal status
func StatusForOutcome(outcome RunOutcome) RunStatus {
	switch outcome {
	case RunOutcomeAllSucceeded:
		return RunStatusCompleted
	case RunOutcomePartialFailure:
		return RunStatusPartial
	default:
		return RunStatusFailed
	}
}

// ParseRunStatus validates a status string
func ParseRunStatus(status string) (RunStatus, error) {
	switch s := RunStatus(status); s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted,
		RunStatusPartial, RunStatusFailed, RunStatusCancelled:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// Marshal encodes the run request for the message queue
func (r *RunRequest) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// ParseRunRequest decodes a run request from the message queue
func ParseRunRequest(data []byte) (*RunRequest, error) {
	var req RunRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.Wrap(err, "unable to parse the run request")
	}
	if req.RunID == "" {
		return nil, errors.New("run request missing run_id")
	}
	if req.WorkflowName == "" && req.Workflow == nil {
		return nil, errors.New("run request missing workflow")
	}
	return &req, nil
}
