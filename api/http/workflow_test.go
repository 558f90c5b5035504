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

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	mocklib "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mock_nats "github.com/postai/flows/client/nats/mocks"
	"github.com/postai/flows/model"
	"github.com/postai/flows/store"
	"github.com/postai/flows/store/mock"
)

const workflowDocument = `{
	"name": "test",
	"version": 1,
	"nodes": {
		"start": {"kind": "start"},
		"get": {"kind": "request", "config": {"method": "GET", "url": "{{base}}/ping"}}
	},
	"edges": [{"source": "start", "target": "get"}]
}`

func testWorkflow(base string) *model.Workflow {
	return &model.Workflow{
		Name:      "test",
		Version:   1,
		Variables: map[string]string{"base": base},
		Nodes: map[string]model.Node{
			"start": {Kind: model.NodeKindStart},
			"get": {
				Kind: model.NodeKindRequest,
				Request: &model.RequestConfig{
					Method:         "GET",
					URL:            "{{base}}/ping",
					OutputVariable: "ping",
				},
			},
		},
		Edges: []model.Edge{{Source: "start", Target: "get"}},
	}
}

func newPingServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong": true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegisterWorkflow(t *testing.T) {
	testCases := map[string]struct {
		body      string
		insertErr error
		insert    bool
		code      int
		err       string
	}{
		"ok": {
			body:   workflowDocument,
			insert: true,
			code:   http.StatusCreated,
		},
		"already exists": {
			body:      workflowDocument,
			insert:    true,
			insertErr: store.ErrWorkflowAlreadyExists,
			code:      http.StatusConflict,
			err:       store.ErrWorkflowAlreadyExists.Error(),
		},
		"store error": {
			body:      workflowDocument,
			insert:    true,
			insertErr: errors.New("connection lost"),
			code:      http.StatusInternalServerError,
			err:       "internal error",
		},
		"malformed": {
			body: `{"name": `,
			code: http.StatusBadRequest,
		},
		"missing name": {
			body: `{"nodes": {"start": {"kind": "start"}}}`,
			code: http.StatusBadRequest,
			err:  "Workflow missing name",
		},
		"no start node": {
			body: `{"name": "test", "nodes": {"end": {"kind": "end"}}}`,
			code: http.StatusBadRequest,
			err:  "invalid workflow graph: no start node: the workflow has no start node",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			dataStore := mock.NewDataStore()
			defer dataStore.AssertExpectations(t)
			if tc.insert {
				count := 1
				if tc.insertErr != nil {
					count = 0
				}
				dataStore.On("InsertWorkflows",
					mocklib.Anything,
					mocklib.MatchedBy(func(workflows []model.Workflow) bool {
						return len(workflows) == 1 && workflows[0].Name == "test"
					}),
				).Return(count, tc.insertErr)
			}
			router := newTestRouter(dataStore, nil)

			w := serve(router, http.MethodPost, APIURLWorkflows, tc.body)
			assert.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusCreated {
				var response model.Workflow
				decodeBody(t, w, &response)
				assert.Equal(t, "test", response.Name)
				require.Contains(t, response.Nodes, "get")
				assert.Equal(t, "{{base}}/ping", response.Nodes["get"].Request.URL)
			} else {
				var response map[string]string
				decodeBody(t, w, &response)
				if tc.err != "" {
					assert.Equal(t, tc.err, response["error"])
				} else {
					assert.NotEmpty(t, response["error"])
				}
			}
		})
	}
}

func TestGetWorkflows(t *testing.T) {
	dataStore := mock.NewDataStore()
	defer dataStore.AssertExpectations(t)
	dataStore.On("GetWorkflows", mocklib.Anything).
		Return([]model.Workflow{*testWorkflow("http://api")}, nil)
	router := newTestRouter(dataStore, nil)

	w := serve(router, http.MethodGet, APIURLWorkflows, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var response []model.Workflow
	decodeBody(t, w, &response)
	require.Len(t, response, 1)
	assert.Equal(t, *testWorkflow("http://api"), response[0])
}

func TestGetWorkflowByName(t *testing.T) {
	dataStore := mock.NewDataStore()
	defer dataStore.AssertExpectations(t)
	dataStore.On("GetWorkflowByName", mocklib.Anything, "test").
		Return(testWorkflow("http://api"), nil)
	dataStore.On("GetWorkflowByName", mocklib.Anything, "missing").
		Return(nil, store.ErrWorkflowNotFound)
	router := newTestRouter(dataStore, nil)

	w := serve(router, http.MethodGet, "/api/v1/workflows/test/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var response model.Workflow
	decodeBody(t, w, &response)
	assert.Equal(t, *testWorkflow("http://api"), response)

	w = serve(router, http.MethodGet, "/api/v1/workflows/missing/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteWorkflow(t *testing.T) {
	upstream := newPingServer(t)
	dataStore := mock.NewDataStore()
	defer dataStore.AssertExpectations(t)

	dataStore.On("GetWorkflowByName", mocklib.Anything, "test").
		Return(testWorkflow("http://unused"), nil).
		Once()
	dataStore.On("UpsertRun", mocklib.Anything, mocklib.AnythingOfType("*model.Run")).
		Return(nil)
	dataStore.On("GetRunByID", mocklib.Anything, mocklib.AnythingOfType("string")).
		Return(nil, nil)
	dataStore.On("InsertHistory",
		mocklib.Anything,
		mocklib.MatchedBy(func(detail *model.HistoryDetail) bool {
			return detail.WorkflowName == "test" && detail.NodeID == "get"
		}),
	).Return(nil).Once()
	router := newTestRouter(dataStore, nil)

	w := serve(router, http.MethodPost, "/api/v1/workflows/test/execute/", map[string]interface{}{
		"input_variables": map[string]string{"base": upstream.URL},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		model.Run
		History []model.HistoryDetail `json:"history"`
	}
	decodeBody(t, w, &response)
	assert.Equal(t, model.RunStatusCompleted, response.Status)
	assert.Equal(t, model.RunOutcomeAllSucceeded, response.Outcome)
	assert.Equal(t, "test", response.WorkflowName)
	require.Len(t, response.History, 1)
	assert.Equal(t, upstream.URL+"/ping", response.History[0].ResolvedURL)
	require.NotNil(t, response.History[0].ResponseBody)
	assert.JSONEq(t, `{"pong": true}`, *response.History[0].ResponseBody)
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	dataStore := mock.NewDataStore()
	defer dataStore.AssertExpectations(t)
	dataStore.On("GetWorkflowByName", mocklib.Anything, "missing").
		Return(nil, store.ErrWorkflowNotFound)
	router := newTestRouter(dataStore, nil)

	w := serve(router, http.MethodPost, "/api/v1/workflows/missing/execute/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteWorkflowAsync(t *testing.T) {
	dataStore := mock.NewDataStore()
	defer dataStore.AssertExpectations(t)
	dataStore.On("GetWorkflowByName", mocklib.Anything, "test").
		Return(testWorkflow("http://api"), nil)
	dataStore.On("UpsertRun",
		mocklib.Anything,
		mocklib.MatchedBy(func(run *model.Run) bool {
			return run.Status == model.RunStatusPending
		}),
	).Return(nil)

	natsClient := &mock_nats.Client{}
	defer natsClient.AssertExpectations(t)
	natsClient.On("StreamName").Return("FLOWS")
	natsClient.On("Publish",
		"FLOWS.runs",
		mocklib.MatchedBy(func(data []byte) bool {
			req, err := model.ParseRunRequest(data)
			return err == nil &&
				req.WorkflowName == "test" &&
				req.Workflow == nil &&
				req.Variables["key"] == "value"
		}),
	).Return(nil)
	router := newTestRouter(dataStore, natsClient)

	w := serve(router, http.MethodPost, "/api/v1/workflows/test/execute/?async=true",
		map[string]interface{}{
			"input_variables": map[string]string{"key": "value"},
		})
	require.Equal(t, http.StatusAccepted, w.Code)
	var run model.Run
	decodeBody(t, w, &run)
	assert.Equal(t, model.RunStatusPending, run.Status)
	assert.NotEmpty(t, run.ID)
}

func TestExecuteWorkflowAsyncErrors(t *testing.T) {
	t.Run("no nats", func(t *testing.T) {
		dataStore := mock.NewDataStore()
		defer dataStore.AssertExpectations(t)
		dataStore.On("GetWorkflowByName", mocklib.Anything, "test").
			Return(testWorkflow("http://api"), nil)
		router := newTestRouter(dataStore, nil)

		w := serve(router, http.MethodPost, "/api/v1/workflows/test/execute/?async=1", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
	t.Run("invalid async", func(t *testing.T) {
		router := newTestRouter(mock.NewDataStore(), nil)
		w := serve(router, http.MethodPost, "/api/v1/workflows/test/execute/?async=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("publish error", func(t *testing.T) {
		dataStore := mock.NewDataStore()
		defer dataStore.AssertExpectations(t)
		dataStore.On("GetWorkflowByName", mocklib.Anything, "test").
			Return(testWorkflow("http://api"), nil)
		var statuses []model.RunStatus
		var lastRun *model.Run
		dataStore.On("UpsertRun", mocklib.Anything, mocklib.AnythingOfType("*model.Run")).
			Run(func(args mocklib.Arguments) {
				lastRun = args.Get(1).(*model.Run)
				statuses = append(statuses, lastRun.Status)
			}).
			Return(nil)
		natsClient := &mock_nats.Client{}
		defer natsClient.AssertExpectations(t)
		natsClient.On("StreamName").Return("FLOWS")
		natsClient.On("Publish", "FLOWS.runs", mocklib.Anything).
			Return(errors.New("nats: no responders available for request"))
		router := newTestRouter(dataStore, natsClient)

		w := serve(router, http.MethodPost, "/api/v1/workflows/test/execute/?async=true", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t,
			[]model.RunStatus{model.RunStatusPending, model.RunStatusFailed},
			statuses,
		)
		require.NotNil(t, lastRun)
		assert.Equal(t,
			"failed to queue the run: nats: no responders available for request",
			lastRun.Error,
		)
		assert.NotNil(t, lastRun.CompletedAt)
	})
}

func TestExecuteAdHocWorkflow(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		upstream := newPingServer(t)
		dataStore := mock.NewDataStore()
		defer dataStore.AssertExpectations(t)
		dataStore.On("UpsertRun", mocklib.Anything, mocklib.AnythingOfType("*model.Run")).
			Return(nil)
		dataStore.On("GetRunByID", mocklib.Anything, mocklib.AnythingOfType("string")).
			Return(nil, nil)
		dataStore.On("InsertHistory", mocklib.Anything, mocklib.AnythingOfType("*model.HistoryDetail")).
			Return(nil)
		router := newTestRouter(dataStore, nil)

		w := serve(router, http.MethodPost, APIURLWorkflowsExecute, map[string]interface{}{
			"workflow": testWorkflow(upstream.URL),
		})
		require.Equal(t, http.StatusOK, w.Code)
		var run model.Run
		decodeBody(t, w, &run)
		assert.Equal(t, model.RunStatusCompleted, run.Status)
	})
	t.Run("missing workflow", func(t *testing.T) {
		router := newTestRouter(mock.NewDataStore(), nil)
		w := serve(router, http.MethodPost, APIURLWorkflowsExecute, map[string]interface{}{
			"input_variables": map[string]string{"key": "value"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("structural error", func(t *testing.T) {
		dataStore := mock.NewDataStore()
		defer dataStore.AssertExpectations(t)
		dataStore.On("UpsertRun",
			mocklib.Anything,
			mocklib.MatchedBy(func(run *model.Run) bool {
				return run.Status == model.RunStatusFailed &&
					run.Outcome == model.RunOutcomeStructuralError
			}),
		).Return(nil)
		router := newTestRouter(dataStore, nil)

		wf := testWorkflow("http://api")
		wf.Edges = append(wf.Edges, model.Edge{Source: "get", Target: "start"})
		w := serve(router, http.MethodPost, APIURLWorkflowsExecute, map[string]interface{}{
			"workflow": wf,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		decodeBody(t, w, &response)
		assert.Contains(t, response["error"], "cycle detected")
		assert.NotEmpty(t, response["execution_id"])
	})
}

func TestGetRunsByWorkflowName(t *testing.T) {
	dataStore := mock.NewDataStore()
	defer dataStore.AssertExpectations(t)
	dataStore.On("GetRunsByWorkflowName", mocklib.Anything, "test", model.RunStatus(""), 10).
		Return([]model.Run{{ID: "run2"}, {ID: "run1"}}, nil)
	dataStore.On("GetRunsByWorkflowName", mocklib.Anything, "test", model.RunStatusFailed, 50).
		Return([]model.Run{}, nil)
	router := newTestRouter(dataStore, nil)

	w := serve(router, http.MethodGet, "/api/v1/workflows/test/executions/?limit=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var runs []model.Run
	decodeBody(t, w, &runs)
	require.Len(t, runs, 2)
	assert.Equal(t, "run2", runs[0].ID)

	w = serve(router, http.MethodGet, "/api/v1/workflows/test/executions/?status=failed", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/v1/workflows/test/executions/?status=done", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	decodeBody(t, w, &response)
	assert.Equal(t, model.ErrInvalidStatus.Error(), response["error"])
}
