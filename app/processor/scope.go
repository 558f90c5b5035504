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

package processor

import (
	"encoding/json"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/thedevsaddam/gojsonq"
)

const (
	outputStatus     = "status"
	outputStatusText = "statusText"
	outputHeaders    = "headers"
	outputBody       = "body"
)

// Output is the response of a request node, published to its descendants
// under the node's output variable
type Output struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Body       string
}

// Scope is the set of values visible to a node: the flat variables of the
// run, the variables set by variable nodes upstream of it and the outputs
// of the request nodes upstream of it. A Scope is never mutated; With and
// WithVariable return a new one.
type Scope struct {
	variables map[string]string
	locals    map[string]string
	outputs   map[string]*Output
}

// NewScope returns a scope over the flat variables of a run
func NewScope(variables map[string]string) *Scope {
	return &Scope{
		variables: variables,
		locals:    map[string]string{},
		outputs:   map[string]*Output{},
	}
}

// With returns a copy of the scope which also exposes output under name
func (s *Scope) With(name string, output *Output) *Scope {
	ret := s.clone()
	if name != "" && output != nil {
		ret.outputs[name] = output
	}
	return ret
}

// WithVariable returns a copy of the scope in which name resolves to
// value, shadowing the run variable of the same name
func (s *Scope) WithVariable(name, value string) *Scope {
	ret := s.clone()
	if name != "" {
		ret.locals[name] = value
	}
	return ret
}

func (s *Scope) clone() *Scope {
	ret := &Scope{
		variables: s.variables,
		locals:    make(map[string]string, len(s.locals)+1),
		outputs:   make(map[string]*Output, len(s.outputs)+1),
	}
	for key, value := range s.locals {
		ret.locals[key] = value
	}
	for key, value := range s.outputs {
		ret.outputs[key] = value
	}
	return ret
}

// Merge returns a scope exposing the variables and outputs of both
// scopes; on name clashes other wins
func (s *Scope) Merge(other *Scope) *Scope {
	if other == nil || (len(other.outputs) == 0 && len(other.locals) == 0) {
		return s
	}
	ret := s.clone()
	for key, value := range other.locals {
		ret.locals[key] = value
	}
	for key, value := range other.outputs {
		ret.outputs[key] = value
	}
	return ret
}

// Lookup resolves a placeholder name. Variables set upstream come first,
// then the flat run variables, then response outputs.
func (s *Scope) Lookup(name string) (string, bool) {
	if value, ok := s.locals[name]; ok {
		return value, true
	}
	if value, ok := s.variables[name]; ok {
		return value, true
	}
	outputName, field, found := strings.Cut(name, ".")
	if !found {
		return "", false
	}
	output, ok := s.outputs[outputName]
	if !ok {
		return "", false
	}
	return output.lookup(field)
}

// Resolve decodes and resolves the placeholders of text against the scope
func (s *Scope) Resolve(text string) string {
	return ResolveWith(DecodePlaceholderEncoding(text), s.Lookup)
}

func (o *Output) lookup(field string) (string, bool) {
	switch field {
	case outputStatus:
		return strconv.Itoa(o.Status), true
	case outputStatusText:
		return o.StatusText, true
	case outputBody:
		return o.Body, true
	}
	if header, ok := strings.CutPrefix(field, outputHeaders+"."); ok {
		if value, ok := o.Headers[header]; ok {
			return value, true
		}
		value, ok := o.Headers[textproto.CanonicalMIMEHeaderKey(header)]
		return value, ok
	}
	if path, ok := strings.CutPrefix(field, outputBody+"."); ok {
		value := gojsonq.New().FromString(o.Body).Find(path)
		if value == nil {
			return "", false
		}
		valueString, err := ConvertAnythingToString(value)
		if err != nil {
			return "", false
		}
		return valueString, true
	}
	return "", false
}

// ConvertAnythingToString returns the string representation of anything
func ConvertAnythingToString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	valueBytes, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(valueBytes), nil
}
