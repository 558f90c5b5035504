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
	"fmt"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const typeHTTP = "http"

// quietRoutes are logged at debug level when they succeed
var quietRoutes = map[string]bool{
	APIURLStatus: true,
	APIURLHealth: true,
}

func routerLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handler can change c.Path so:
		path := c.Request.URL.Path
		route := c.FullPath()
		start := time.Now()
		c.Next()
		stop := time.Since(start)
		latency := math.Ceil(float64(stop.Nanoseconds())) / 1000000.0
		statusCode := c.Writer.Status()
		method := c.Request.Method
		clientIP := c.ClientIP()
		clientUserAgent := c.Request.UserAgent()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		entry := logger.WithFields(logrus.Fields{
			"clientip":     clientIP,
			"type":         typeHTTP,
			"ts":           start.Round(0),
			"status":       statusCode,
			"responsetime": latency,
			"byteswritten": dataLength,
			"method":       method,
			"path":         path,
			"route":        route,
		})

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		} else {
			msg := fmt.Sprintf("%d %f %s %s %s - %s", statusCode, latency, method, path, clientIP, clientUserAgent)
			if statusCode > 499 {
				entry.Error(msg)
			} else if statusCode > 399 {
				entry.Warn(msg)
			} else if quietRoutes[route] {
				entry.Debug(msg)
			} else {
				entry.Info(msg)
			}
		}
	}
}
