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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/postai/flows/client/nats"
	"github.com/postai/flows/store"
)

const defaultTimeout = time.Second * 5

// StatusController container for end-points
type StatusController struct {
	dataStore store.DataStore
	nats      nats.Client
}

// NewStatusController returns a new StatusController
func NewStatusController(dataStore store.DataStore, nats nats.Client) *StatusController {
	return &StatusController{
		dataStore: dataStore,
		nats:      nats,
	}
}

// Status responds to GET /status
func (h StatusController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// HealthCheck responds to GET /api/v1/health
func (h StatusController) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	err := h.dataStore.Ping(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "error reaching the data store: " + err.Error(),
		})
		return
	}
	if h.nats != nil && !h.nats.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "not connected to nats",
		})
		return
	}
	c.Status(http.StatusNoContent)
}
