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
	"time"
)

// HistoryEntry is the summary of one dispatched request
type HistoryEntry struct {
	// ID is generated when the request is dispatched
	ID string `json:"id" bson:"_id" yaml:"id"`

	// RunID, NodeID and WorkflowName are empty for ad-hoc requests
	RunID        string `json:"run_id,omitempty" bson:"run_id,omitempty" yaml:"run_id,omitempty"`
	NodeID       string `json:"node_id,omitempty" bson:"node_id,omitempty" yaml:"node_id,omitempty"`
	WorkflowName string `json:"workflow_name,omitempty" bson:"workflow_name,omitempty" yaml:"workflow_name,omitempty"`

	Method string `json:"method" bson:"method" yaml:"method"`
	// URL as configured, before resolution
	URL string `json:"url" bson:"url" yaml:"url"`
	// ResolvedURL is the URL actually sent
	ResolvedURL string `json:"resolved_url" bson:"resolved_url" yaml:"resolved_url"`

	// StatusCode is nil when the request never completed
	StatusCode *int   `json:"status_code" bson:"status_code" yaml:"status_code"`
	StatusText string `json:"status_text" bson:"status_text" yaml:"status_text"`
	// ResponseTime in milliseconds
	ResponseTime int64 `json:"response_time" bson:"response_time" yaml:"response_time"`
	// ResponseSize in bytes
	ResponseSize int64     `json:"response_size" bson:"response_size" yaml:"response_size"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" yaml:"created_at"`

	// ErrorMessage is set exactly when no valid HTTP response was obtained
	ErrorMessage *string `json:"error_message" bson:"error_message" yaml:"error_message"`
}

// HistoryDetail is the full record of one dispatched request
type HistoryDetail struct {
	HistoryEntry `bson:",inline" yaml:",inline"`

	Headers         map[string]string `json:"headers" bson:"headers" yaml:"headers"`
	Body            *string           `json:"body" bson:"body" yaml:"body"`
	ResponseHeaders map[string]string `json:"response_headers" bson:"response_headers" yaml:"response_headers"`
	ResponseBody    *string           `json:"response_body" bson:"response_body" yaml:"response_body"`
}
