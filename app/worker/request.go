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

package worker

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/postai/flows/app/processor"
	"github.com/postai/flows/model"
)

const contentTypeJSON = "application/json"

// methodsWithBody are the methods for which the configured body is sent
var methodsWithBody = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// resolveRequest materializes a request configuration against a scope
func resolveRequest(
	config *model.RequestConfig,
	scope *processor.Scope,
	timeout time.Duration,
) *DispatchRequest {
	method := strings.ToUpper(strings.TrimSpace(config.Method))
	if method == "" {
		method = model.DefaultMethod
	}
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}

	url := processor.MergeQueryParams(scope.Resolve(config.URL), config.Params, scope.Resolve)

	headers := make(map[string]string, len(config.Headers)+1)
	hasContentType := false
	for name, value := range config.Headers {
		headers[name] = scope.Resolve(value)
		if strings.EqualFold(name, hdrContentType) {
			hasContentType = true
		}
	}

	var body *string
	if config.Body != nil && methodsWithBody[method] {
		resolved := scope.Resolve(*config.Body)
		body = &resolved
		if resolved != "" && !hasContentType {
			headers[hdrContentType] = contentTypeJSON
		}
	}

	return &DispatchRequest{
		Method:  method,
		URL:     url,
		Headers: headers,
		Body:    body,
		Timeout: timeout,
	}
}

// newHistoryDetail returns the record of a dispatch, before its outcome
// is known
func newHistoryDetail(config *model.RequestConfig, req *DispatchRequest) *model.HistoryDetail {
	return &model.HistoryDetail{
		HistoryEntry: model.HistoryEntry{
			ID:          uuid.NewString(),
			Method:      req.Method,
			URL:         config.URL,
			ResolvedURL: req.URL,
			CreatedAt:   time.Now().UTC(),
		},
		Headers: req.Headers,
		Body:    req.Body,
	}
}

// complete records the outcome of the dispatch
func complete(
	detail *model.HistoryDetail,
	res *DispatchResponse,
	err error,
	elapsed time.Duration,
) {
	if err != nil {
		message := err.Error()
		detail.ErrorMessage = &message
		detail.ResponseTime = elapsed.Milliseconds()
		return
	}
	statusCode := res.StatusCode
	body := res.Body
	detail.StatusCode = &statusCode
	detail.StatusText = res.StatusText
	detail.ResponseHeaders = res.Headers
	detail.ResponseBody = &body
	detail.ResponseSize = res.Size
	if res.Elapsed > 0 {
		elapsed = res.Elapsed
	}
	detail.ResponseTime = elapsed.Milliseconds()
}

// outputOf is the value published to descendants for a completed dispatch
func outputOf(res *DispatchResponse) *processor.Output {
	return &processor.Output{
		Status:     res.StatusCode,
		StatusText: res.StatusText,
		Headers:    res.Headers,
		Body:       res.Body,
	}
}
