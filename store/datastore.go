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

package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/postai/flows/model"
	"github.com/postai/flows/workflow"
)

var (
	ErrWorkflowNotFound      = errors.New("Workflow not found")
	ErrWorkflowMissingName   = errors.New("Workflow missing name")
	ErrWorkflowAlreadyExists = errors.New("Workflow already exists")
)

// DataStore is the storage of workflows, runs and request history
type DataStore interface {
	Ping(ctx context.Context) error

	// InsertWorkflows stores the workflows, unless a workflow with the same
	// name and an equal or newer version exists; it returns the number of
	// workflows stored before the first error.
	InsertWorkflows(ctx context.Context, workflows ...model.Workflow) (int, error)
	// GetWorkflowByName returns ErrWorkflowNotFound if no such workflow
	GetWorkflowByName(ctx context.Context, name string) (*model.Workflow, error)
	GetWorkflows(ctx context.Context) ([]model.Workflow, error)

	UpsertRun(ctx context.Context, run *model.Run) error
	// GetRunByID returns nil, nil if no such run
	GetRunByID(ctx context.Context, id string) (*model.Run, error)
	// GetRunsByWorkflowName returns the runs of a workflow, newest first.
	// An empty status selects runs in any status.
	GetRunsByWorkflowName(
		ctx context.Context,
		name string,
		status model.RunStatus,
		limit int,
	) ([]model.Run, error)

	InsertHistory(ctx context.Context, detail *model.HistoryDetail) error
	// GetHistory returns the history entries, newest first
	GetHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	// GetHistoryByID returns nil, nil if no such entry
	GetHistoryByID(ctx context.Context, id string) (*model.HistoryDetail, error)
	// DeleteHistory does not fail if no such entry
	DeleteHistory(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error

	Close()
}

// LoadWorkflows reads the workflow documents from path and stores them
func LoadWorkflows(ctx context.Context, dataStore DataStore, path string) error {
	l := log.FromContext(ctx)
	workflows, err := workflow.GetWorkflowsFromPath(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read the workflows from %s", path)
	}
	for _, wf := range workflows {
		count, err := dataStore.InsertWorkflows(ctx, *wf)
		if count != 0 {
			l.Infof("%s: workflow loaded, version %d", wf.Name, wf.Version)
		} else if errors.Is(err, ErrWorkflowAlreadyExists) {
			l.Infof("%s: workflow already up to date", wf.Name)
		} else if err != nil {
			l.Errorf("%s: failed to load the workflow: %s", wf.Name, err)
		}
	}
	return nil
}
