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
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/postai/flows/app/worker"
	"github.com/postai/flows/client/nats"
	"github.com/postai/flows/store"
)

// API URL used by the HTTP router
const (
	APIURLStatus = "/status"
	APIURLHealth = "/api/v1/health"

	APIURLRequestExecute = "/api/v1/requests/execute/"
	APIURLHistory        = "/api/v1/requests/history/"
	APIURLHistoryID      = "/api/v1/requests/history/:id/"

	APIURLWorkflows          = "/api/v1/workflows/"
	APIURLWorkflowsExecute   = "/api/v1/workflows/execute/"
	APIURLWorkflow           = "/api/v1/workflows/:name/"
	APIURLWorkflowExecute    = "/api/v1/workflows/:name/execute/"
	APIURLWorkflowExecutions = "/api/v1/workflows/:name/executions/"

	APIURLExecution       = "/api/v1/executions/:id/"
	APIURLExecutionCancel = "/api/v1/executions/:id/cancel/"
)

const defaultListLimit = 50

// Config holds the settings of the API handlers
type Config struct {
	// HistoryLimit is the page size of the history and execution lists
	// when the request does not set one
	HistoryLimit int
	// Topic is the subject runs are published to for asynchronous execution
	Topic string
}

// NewRouter returns the gin router. natsClient may be nil, in which case
// asynchronous execution is not available.
func NewRouter(
	dataStore store.DataStore,
	natsClient nats.Client,
	runner *worker.Runner,
	cfg Config,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	gin.DisableConsoleColor()

	router := gin.New()
	ctx := context.Background()
	l := log.FromContext(ctx)

	router.Use(routerLogger(l))
	router.Use(gin.Recovery())

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultListLimit
	}

	status := NewStatusController(dataStore, natsClient)
	router.GET(APIURLStatus, status.Status)
	router.GET(APIURLHealth, status.HealthCheck)

	requests := NewRequestController(dataStore, runner.Engine(), cfg.HistoryLimit)
	router.POST(APIURLRequestExecute, requests.ExecuteRequest)
	router.GET(APIURLHistory, requests.GetHistory)
	router.DELETE(APIURLHistory, requests.ClearHistory)
	router.GET(APIURLHistoryID, requests.GetHistoryByID)
	router.DELETE(APIURLHistoryID, requests.DeleteHistory)

	workflow := NewWorkflowController(dataStore, natsClient, runner, cfg)
	router.POST(APIURLWorkflows, workflow.RegisterWorkflow)
	router.GET(APIURLWorkflows, workflow.GetWorkflows)
	router.POST(APIURLWorkflowsExecute, workflow.ExecuteAdHocWorkflow)
	router.GET(APIURLWorkflow, workflow.GetWorkflowByName)
	router.POST(APIURLWorkflowExecute, workflow.ExecuteWorkflow)
	router.GET(APIURLWorkflowExecutions, workflow.GetRunsByWorkflowName)

	router.GET(APIURLExecution, workflow.GetRunByID)
	router.POST(APIURLExecutionCancel, workflow.CancelRun)

	return router
}
