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

	"github.com/gin-gonic/gin"

	"github.com/postai/flows/app/worker"
)

// GetRunByID responds to GET /api/v1/executions/:id/
func (h WorkflowController) GetRunByID(c *gin.Context) {
	var id = c.Param("id")

	run, err := h.dataStore.GetRunByID(c.Request.Context(), id)
	if err != nil {
		internalError(c, err)
		return
	} else if run == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": errNotFound.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, run)
}

// CancelRun responds to POST /api/v1/executions/:id/cancel/
func (h WorkflowController) CancelRun(c *gin.Context) {
	var id = c.Param("id")

	run, err := h.runner.Cancel(c.Request.Context(), id)
	switch err {
	case nil:
		c.JSON(http.StatusOK, run)
	case worker.ErrRunNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"error": errNotFound.Error(),
		})
	case worker.ErrRunFinished:
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Only pending or running executions can be cancelled",
			"status": run.Status,
		})
	default:
		internalError(c, err)
	}
}
