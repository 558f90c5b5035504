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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRun(t *testing.T) {
	req := &RunRequest{
		WorkflowName: "test",
		Variables:    map[string]string{"key": "value"},
	}
	run := NewRun(req)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, req.RunID, run.ID)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.Equal(t, "value", run.Variables["key"])
	assert.False(t, run.Finished())

	run.Status = RunStatusPartial
	assert.True(t, run.Finished())
}

func TestNewRunIDIsSortable(t *testing.T) {
	first := NewRunID()
	second := NewRunID()
	assert.Len(t, first, 26)
	assert.NotEqual(t, first, second)
	assert.True(t, first <= second)
}

func TestStatusForOutcome(t *testing.T) {
	assert.Equal(t, RunStatusCompleted, StatusForOutcome(RunOutcomeAllSucceeded))
	assert.Equal(t, RunStatusPartial, StatusForOutcome(RunOutcomePartialFailure))
	assert.Equal(t, RunStatusFailed, StatusForOutcome(RunOutcomeStructuralError))
}

func TestParseRunStatus(t *testing.T) {
	status, err := ParseRunStatus("running")
	assert.NoError(t, err)
	assert.Equal(t, RunStatusRunning, status)

	_, err = ParseRunStatus("done")
	assert.Equal(t, ErrInvalidStatus, err)
}

func TestParseRunRequest(t *testing.T) {
	req := &RunRequest{
		RunID:        NewRunID(),
		WorkflowName: "test",
		Variables:    map[string]string{"key": "value"},
	}
	data, err := req.Marshal()
	require.NoError(t, err)

	parsed, err := ParseRunRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req, parsed)

	_, err = ParseRunRequest([]byte(`INVALID JSON`))
	assert.Error(t, err)

	_, err = ParseRunRequest([]byte(`{"workflow_name": "test"}`))
	assert.EqualError(t, err, "run request missing run_id")

	_, err = ParseRunRequest([]byte(`{"run_id": "1"}`))
	assert.EqualError(t, err, "run request missing workflow")
}
