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
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mendersoftware/go-lib-micro/log"
)

const (
	hdrAcceptEncoding  = "Accept-Encoding"
	hdrContentEncoding = "Content-Encoding"
	hdrContentType     = "Content-Type"
)

// DispatchRequest is a fully resolved HTTP request
type DispatchRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    *string
	Timeout time.Duration
}

// DispatchResponse is the response to a DispatchRequest
type DispatchResponse struct {
	StatusCode int
	StatusText string
	Headers    map[string]string
	Body       string
	// Size is the number of bytes received on the wire
	Size    int64
	Elapsed time.Duration
}

// Dispatcher sends resolved requests. Implementations return a
// *TransportError when no valid HTTP response was obtained.
type Dispatcher interface {
	Send(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error)
}

var httpTransport = func() http.RoundTripper {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// bodies are decoded by decodeBody, after counting the bytes received
	transport.DisableCompression = true
	return transport
}()

var makeHTTPRequest = func(req *http.Request, timeout time.Duration) (*http.Response, error) {
	var httpClient = &http.Client{
		Transport: httpTransport,
		Timeout:   timeout,
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// HTTPDispatcher sends requests with net/http
type HTTPDispatcher struct{}

// NewHTTPDispatcher returns a new HTTPDispatcher
func NewHTTPDispatcher() *HTTPDispatcher {
	return &HTTPDispatcher{}
}

// Send sends the request and reads the whole response
func (d *HTTPDispatcher) Send(
	ctx context.Context,
	dispatch *DispatchRequest,
) (*DispatchResponse, error) {
	l := log.FromContext(ctx)
	if dispatch.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dispatch.Timeout)
		defer cancel()
	}

	var body io.Reader
	if dispatch.Body != nil {
		body = strings.NewReader(*dispatch.Body)
	}
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, dispatch.Method, dispatch.URL, body)
	if err != nil {
		return nil, &TransportError{Kind: TransportErrorOther, Err: err}
	}
	for name, value := range dispatch.Headers {
		req.Header.Set(name, value)
	}
	if req.Header.Get(hdrAcceptEncoding) == "" {
		req.Header.Set(hdrAcceptEncoding, acceptEncoding)
	}

	l.Debugf("makeHTTPRequest %s %s", req.Method, req.URL)
	res, err := makeHTTPRequest(req, dispatch.Timeout)
	if err != nil {
		return nil, classifyTransportError(err, dispatch.Timeout)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classifyTransportError(err, dispatch.Timeout)
	}
	elapsed := time.Since(start)

	decoded, err := decodeBody(
		raw,
		res.Header.Get(hdrContentEncoding),
		res.Header.Get(hdrContentType),
	)
	if err != nil {
		l.Warnf("returning the raw response body: %s", err)
	}

	return &DispatchResponse{
		StatusCode: res.StatusCode,
		StatusText: statusText(res),
		Headers:    flattenHeaders(res.Header),
		Body:       string(decoded),
		Size:       int64(len(raw)),
		Elapsed:    elapsed,
	}, nil
}

func statusText(res *http.Response) string {
	text := strings.TrimSpace(
		strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)),
	)
	if text == "" {
		text = http.StatusText(res.StatusCode)
	}
	return text
}

func flattenHeaders(header http.Header) map[string]string {
	ret := make(map[string]string, len(header))
	for name, values := range header {
		ret[name] = strings.Join(values, ", ")
	}
	return ret
}
