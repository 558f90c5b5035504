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
	"testing"

	"github.com/stretchr/testify/assert"
	mocklib "github.com/stretchr/testify/mock"

	"github.com/postai/flows/model"
	"github.com/postai/flows/store/mock"
)

func TestGetRunByID(t *testing.T) {
	dataStore := mock.NewDataStore()
	defer dataStore.AssertExpectations(t)
	dataStore.On("GetRunByID", mocklib.Anything, "run1").
		Return(&model.Run{ID: "run1", WorkflowName: "test", Status: model.RunStatusPartial}, nil)
	dataStore.On("GetRunByID", mocklib.Anything, "missing").
		Return(nil, nil)
	router := newTestRouter(dataStore, nil)

	w := serve(router, http.MethodGet, "/api/v1/executions/run1/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var run model.Run
	decodeBody(t, w, &run)
	assert.Equal(t, "run1", run.ID)
	assert.Equal(t, model.RunStatusPartial, run.Status)

	w = serve(router, http.MethodGet, "/api/v1/executions/missing/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelRun(t *testing.T) {
	testCases := map[string]struct {
		run    *model.Run
		code   int
		status model.RunStatus
	}{
		"pending": {
			run:    &model.Run{ID: "run1", Status: model.RunStatusPending},
			code:   http.StatusOK,
			status: model.RunStatusCancelled,
		},
		"finished": {
			run:    &model.Run{ID: "run1", Status: model.RunStatusFailed},
			code:   http.StatusConflict,
			status: model.RunStatusFailed,
		},
		"not found": {
			code: http.StatusNotFound,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			dataStore := mock.NewDataStore()
			defer dataStore.AssertExpectations(t)
			dataStore.On("GetRunByID", mocklib.Anything, "run1").Return(tc.run, nil)
			if tc.code == http.StatusOK {
				dataStore.On("UpsertRun", mocklib.Anything, tc.run).Return(nil)
			}
			router := newTestRouter(dataStore, nil)

			w := serve(router, http.MethodPost, "/api/v1/executions/run1/cancel/", nil)
			assert.Equal(t, tc.code, w.Code)
			if tc.run != nil {
				var response map[string]interface{}
				decodeBody(t, w, &response)
				assert.Equal(t, string(tc.status), response["status"])
			}
		})
	}
}
