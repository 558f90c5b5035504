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

package workflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/postai/flows/model"
)

// ParseWorkflowFromJSON parse a JSON string and returns a Workflow struct
func ParseWorkflowFromJSON(jsonData []byte) (*model.Workflow, error) {
	var workflow model.Workflow
	if err := json.Unmarshal(jsonData, &workflow); err != nil {
		return nil, errors.Wrap(err, "unable to parse the JSON")
	}
	return &workflow, nil
}

// ParseWorkflowFromYAML parse a YAML document and returns a Workflow struct
func ParseWorkflowFromYAML(yamlData []byte) (*model.Workflow, error) {
	var workflow model.Workflow
	if err := yaml.Unmarshal(yamlData, &workflow); err != nil {
		return nil, errors.Wrap(err, "unable to parse the YAML")
	}
	return &workflow, nil
}

// ParseWorkflowFromFile parses a workflow document; the format is chosen
// by the file extension
func ParseWorkflowFromFile(path string) (*model.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseWorkflowFromYAML(data)
	case ".json":
		return ParseWorkflowFromJSON(data)
	}
	return nil, errors.Errorf("unsupported workflow document %s", path)
}

// GetWorkflowsFromPath parses the workflow documents stored in a directory
// and returns them by name; for duplicate names the highest version wins.
// Files which are not workflow documents are ignored.
func GetWorkflowsFromPath(path string) (map[string]*model.Workflow, error) {
	var workflows = make(map[string]*model.Workflow)
	files, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		fn := filepath.Join(path, f.Name())
		workflow, err := ParseWorkflowFromFile(fn)
		if err != nil || workflow.Name == "" {
			continue
		}
		if workflows[workflow.Name] == nil || workflows[workflow.Name].Version <= workflow.Version {
			workflows[workflow.Name] = workflow
		}
	}
	return workflows, nil
}
