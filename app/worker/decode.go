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
	"bytes"
	"io"
	"mime"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

const acceptEncoding = "gzip, deflate, br, zstd"

// decodeBody undoes the content codings of a response body, then converts
// it to UTF-8 when the content type names another charset
func decodeBody(raw []byte, contentEncoding, contentType string) ([]byte, error) {
	body := raw
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		if coding == "" || coding == "identity" {
			continue
		}
		decoded, err := decodeContent(body, coding)
		if err != nil {
			return raw, errors.Wrapf(err, "failed to decode %s response body", coding)
		}
		body = decoded
	}
	return toUTF8(body, contentType)
}

func decodeContent(data []byte, coding string) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)
	switch coding {
	case "gzip", "x-gzip":
		var gz *gzip.Reader
		gz, err = gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case "deflate":
		// servers disagree on whether deflate carries the zlib header
		var zr io.ReadCloser
		zr, err = zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			zr = flate.NewReader(bytes.NewReader(data))
		}
		defer zr.Close()
		r = zr
	case "br":
		r = brotli.NewReader(bytes.NewReader(data))
	case "zstd":
		var zd *zstd.Decoder
		zd, err = zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zd.Close()
		r = zd
	default:
		return nil, errors.Errorf("unsupported content encoding %q", coding)
	}
	return io.ReadAll(r)
}

func toUTF8(body []byte, contentType string) ([]byte, error) {
	if contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	label := strings.ToLower(strings.TrimSpace(params["charset"]))
	switch label {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return body, nil
	}
	r, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return body, errors.Wrapf(err, "unsupported charset %q", label)
	}
	return io.ReadAll(r)
}
