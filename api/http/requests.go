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
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/postai/flows/app/worker"
	"github.com/postai/flows/model"
	"github.com/postai/flows/store"
)

const queryLimit = "limit"

var errNotFound = errors.New("Not found")

// RequestController serves the ad-hoc requests and their history
type RequestController struct {
	dataStore    store.DataStore
	engine       *worker.Engine
	historyLimit int
}

// NewRequestController returns a new RequestController
func NewRequestController(
	dataStore store.DataStore,
	engine *worker.Engine,
	historyLimit int,
) *RequestController {
	return &RequestController{
		dataStore:    dataStore,
		engine:       engine,
		historyLimit: historyLimit,
	}
}

type executeRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Params  []model.Param     `json:"params"`
	Headers map[string]string `json:"headers"`
	Body    *string           `json:"body"`
	// Timeout in seconds
	Timeout     int               `json:"timeout"`
	Variables   map[string]string `json:"variables"`
	SaveHistory *bool             `json:"save_history"`
}

// ExecuteRequest responds to POST /api/v1/requests/execute/
func (h RequestController) ExecuteRequest(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unable to parse the request: " + err.Error(),
		})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "URL is required",
		})
		return
	}
	save := true
	if req.SaveHistory != nil {
		save = *req.SaveHistory
	}

	config := &model.RequestConfig{
		Method:  req.Method,
		URL:     req.URL,
		Params:  req.Params,
		Headers: req.Headers,
		Body:    req.Body,
		Timeout: req.Timeout,
	}
	detail := h.engine.SendRequest(c.Request.Context(), config, req.Variables, save)
	c.JSON(http.StatusOK, detail)
}

// GetHistory responds to GET /api/v1/requests/history/
func (h RequestController) GetHistory(c *gin.Context) {
	limit, err := parseLimit(c, h.historyLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	history, err := h.dataStore.GetHistory(c.Request.Context(), limit)
	if err != nil {
		internalError(c, err)
		return
	}
	if history == nil {
		history = []model.HistoryEntry{}
	}
	c.JSON(http.StatusOK, history)
}

// ClearHistory responds to DELETE /api/v1/requests/history/
func (h RequestController) ClearHistory(c *gin.Context) {
	if err := h.dataStore.ClearHistory(c.Request.Context()); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "cleared",
	})
}

// GetHistoryByID responds to GET /api/v1/requests/history/:id/
func (h RequestController) GetHistoryByID(c *gin.Context) {
	detail, err := h.dataStore.GetHistoryByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, err)
		return
	} else if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": errNotFound.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// DeleteHistory responds to DELETE /api/v1/requests/history/:id/
func (h RequestController) DeleteHistory(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	detail, err := h.dataStore.GetHistoryByID(ctx, id)
	if err != nil {
		internalError(c, err)
		return
	} else if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": errNotFound.Error(),
		})
		return
	}
	if err := h.dataStore.DeleteHistory(ctx, id); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
	})
}

func parseLimit(c *gin.Context, def int) (int, error) {
	value := c.Query(queryLimit)
	if value == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 {
		return 0, errors.Errorf("invalid limit %q", value)
	}
	return limit, nil
}

func internalError(c *gin.Context, err error) {
	log.FromContext(c.Request.Context()).Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "internal error",
	})
}
