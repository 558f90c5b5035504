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
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/postai/flows/app/planner"
	"github.com/postai/flows/app/worker"
	"github.com/postai/flows/client/nats"
	"github.com/postai/flows/model"
	"github.com/postai/flows/store"
	"github.com/postai/flows/workflow"
)

const queryAsync = "async"

var errAsyncUnavailable = errors.New("asynchronous execution is not available")

// WorkflowController container for end-points
type WorkflowController struct {
	// dataStore provides an interface to the database
	dataStore store.DataStore
	// nats provides an interface to the message bus
	nats   nats.Client
	runner *worker.Runner

	topic     string
	listLimit int
}

// NewWorkflowController returns a new WorkflowController
func NewWorkflowController(
	dataStore store.DataStore,
	nats nats.Client,
	runner *worker.Runner,
	cfg Config,
) *WorkflowController {
	return &WorkflowController{
		dataStore: dataStore,
		nats:      nats,
		runner:    runner,
		topic:     cfg.Topic,
		listLimit: cfg.HistoryLimit,
	}
}

type executeWorkflowRequest struct {
	InputVariables map[string]string `json:"input_variables"`
	// Workflow is the document of an ad-hoc execution
	Workflow *model.Workflow `json:"workflow"`
}

type executionResponse struct {
	*model.Run
	History []model.HistoryDetail `json:"history"`
}

// RegisterWorkflow responds to POST /api/v1/workflows/
func (h WorkflowController) RegisterWorkflow(c *gin.Context) {
	rawData, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Bad request",
		})
		return
	}
	wf, err := workflow.ParseWorkflowFromJSON(rawData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Error parsing JSON form: %s",
				err.Error()),
		})
		return
	}
	if err := wf.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	if _, err := planner.BuildExecutionPlan(wf); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	_, err = h.dataStore.InsertWorkflows(c.Request.Context(), *wf)
	if err != nil {
		httpStatus := http.StatusInternalServerError
		switch err {
		case store.ErrWorkflowAlreadyExists:
			httpStatus = http.StatusConflict
		case store.ErrWorkflowMissingName:
			httpStatus = http.StatusBadRequest
		}
		c.JSON(httpStatus, gin.H{
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, wf)
}

// GetWorkflows responds to GET /api/v1/workflows/
func (h WorkflowController) GetWorkflows(c *gin.Context) {
	workflows, err := h.dataStore.GetWorkflows(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	if workflows == nil {
		workflows = []model.Workflow{}
	}
	c.JSON(http.StatusOK, workflows)
}

// GetWorkflowByName responds to GET /api/v1/workflows/:name/
func (h WorkflowController) GetWorkflowByName(c *gin.Context) {
	wf, ok := h.getWorkflow(c, c.Param("name"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, wf)
}

// ExecuteWorkflow responds to POST /api/v1/workflows/:name/execute/
func (h WorkflowController) ExecuteWorkflow(c *gin.Context) {
	name := c.Param("name")
	async, ok := parseAsync(c)
	if !ok {
		return
	}
	body, ok := bindExecution(c)
	if !ok {
		return
	}
	wf, ok := h.getWorkflow(c, name)
	if !ok {
		return
	}
	req := &model.RunRequest{
		WorkflowName: name,
		Variables:    body.InputVariables,
	}
	if !async {
		// the worker loads the latest version of queued runs
		req.Workflow = wf
	}
	h.execute(c, req, wf, async)
}

// ExecuteAdHocWorkflow responds to POST /api/v1/workflows/execute/
func (h WorkflowController) ExecuteAdHocWorkflow(c *gin.Context) {
	async, ok := parseAsync(c)
	if !ok {
		return
	}
	body, ok := bindExecution(c)
	if !ok {
		return
	}
	if body.Workflow == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "workflow is required",
		})
		return
	}
	req := &model.RunRequest{
		WorkflowName: body.Workflow.Name,
		Variables:    body.InputVariables,
		Workflow:     body.Workflow,
	}
	h.execute(c, req, body.Workflow, async)
}

func (h WorkflowController) execute(
	c *gin.Context,
	req *model.RunRequest,
	wf *model.Workflow,
	async bool,
) {
	ctx := c.Request.Context()
	l := log.FromContext(ctx)

	if async {
		if _, err := planner.BuildExecutionPlan(wf); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		if h.nats == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": errAsyncUnavailable.Error(),
			})
			return
		}
		run, err := h.runner.Enqueue(ctx, req)
		if err != nil {
			internalError(c, err)
			return
		}
		if err := worker.PublishRun(h.nats, h.topic, req); err != nil {
			l.Error(errors.Wrap(err, "failed to publish the run"))
			h.runner.Fail(ctx, run, "failed to queue the run: "+err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": err.Error(),
			})
			return
		}
		l.Infof("run %s of workflow %s queued", run.ID, run.WorkflowName)
		c.JSON(http.StatusAccepted, run)
		return
	}

	run, history, err := h.runner.Execute(ctx, req)
	var graphErr *model.GraphError
	if errors.As(err, &graphErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        err.Error(),
			"execution_id": run.ID,
		})
		return
	} else if err != nil {
		internalError(c, err)
		return
	}
	if history == nil {
		history = []model.HistoryDetail{}
	}
	c.JSON(http.StatusOK, executionResponse{Run: run, History: history})
}

// GetRunsByWorkflowName responds to GET /api/v1/workflows/:name/executions/
func (h WorkflowController) GetRunsByWorkflowName(c *gin.Context) {
	limit, err := parseLimit(c, h.listLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	var status model.RunStatus
	if value := c.Query("status"); value != "" {
		status, err = model.ParseRunStatus(value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
	}
	runs, err := h.dataStore.GetRunsByWorkflowName(
		c.Request.Context(), c.Param("name"), status, limit,
	)
	if err != nil {
		internalError(c, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	c.JSON(http.StatusOK, runs)
}

func (h WorkflowController) getWorkflow(c *gin.Context, name string) (*model.Workflow, bool) {
	wf, err := h.dataStore.GetWorkflowByName(c.Request.Context(), name)
	if err == store.ErrWorkflowNotFound {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return nil, false
	} else if err != nil {
		internalError(c, err)
		return nil, false
	}
	return wf, true
}

func parseAsync(c *gin.Context) (bool, bool) {
	value := c.Query(queryAsync)
	if value == "" {
		return false, true
	}
	async, err := strconv.ParseBool(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("invalid %s value %q", queryAsync, value),
		})
		return false, false
	}
	return async, true
}

// bindExecution decodes the optional body of an execution request
func bindExecution(c *gin.Context) (*executeWorkflowRequest, bool) {
	var body executeWorkflowRequest
	rawData, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Bad request",
		})
		return nil, false
	}
	if len(bytes.TrimSpace(rawData)) == 0 {
		return &body, true
	}
	if err := json.Unmarshal(rawData, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Unable to parse the input variables: %s",
				err.Error()),
		})
		return nil, false
	}
	return &body, true
}
