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

package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/postai/flows/model"
)

// DataStore is a mocked data storage service
type DataStore struct {
	mock.Mock
}

// NewDataStore returns a new mocked data storage service
func NewDataStore() *DataStore {
	return &DataStore{}
}

// Ping provides a mock function
func (db *DataStore) Ping(ctx context.Context) error {
	ret := db.Called(ctx)
	return ret.Error(0)
}

// InsertWorkflows provides a mock function
func (db *DataStore) InsertWorkflows(
	ctx context.Context,
	workflows ...model.Workflow,
) (int, error) {
	ret := db.Called(ctx, workflows)
	return ret.Int(0), ret.Error(1)
}

// GetWorkflowByName provides a mock function
func (db *DataStore) GetWorkflowByName(
	ctx context.Context,
	name string,
) (*model.Workflow, error) {
	ret := db.Called(ctx, name)

	var r0 *model.Workflow
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Workflow)
	}
	return r0, ret.Error(1)
}

// GetWorkflows provides a mock function
func (db *DataStore) GetWorkflows(ctx context.Context) ([]model.Workflow, error) {
	ret := db.Called(ctx)

	var r0 []model.Workflow
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Workflow)
	}
	return r0, ret.Error(1)
}

// UpsertRun provides a mock function
func (db *DataStore) UpsertRun(ctx context.Context, run *model.Run) error {
	ret := db.Called(ctx, run)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.Run) error); ok {
		r0 = rf(ctx, run)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// GetRunByID provides a mock function
func (db *DataStore) GetRunByID(ctx context.Context, id string) (*model.Run, error) {
	ret := db.Called(ctx, id)

	var r0 *model.Run
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Run)
	}
	return r0, ret.Error(1)
}

// GetRunsByWorkflowName provides a mock function
func (db *DataStore) GetRunsByWorkflowName(
	ctx context.Context,
	name string,
	status model.RunStatus,
	limit int,
) ([]model.Run, error) {
	ret := db.Called(ctx, name, status, limit)

	var r0 []model.Run
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Run)
	}
	return r0, ret.Error(1)
}

// InsertHistory provides a mock function
func (db *DataStore) InsertHistory(ctx context.Context, detail *model.HistoryDetail) error {
	ret := db.Called(ctx, detail)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.HistoryDetail) error); ok {
		r0 = rf(ctx, detail)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// GetHistory provides a mock function
func (db *DataStore) GetHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	ret := db.Called(ctx, limit)

	var r0 []model.HistoryEntry
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.HistoryEntry)
	}
	return r0, ret.Error(1)
}

// GetHistoryByID provides a mock function
func (db *DataStore) GetHistoryByID(
	ctx context.Context,
	id string,
) (*model.HistoryDetail, error) {
	ret := db.Called(ctx, id)

	var r0 *model.HistoryDetail
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.HistoryDetail)
	}
	return r0, ret.Error(1)
}

// DeleteHistory provides a mock function
func (db *DataStore) DeleteHistory(ctx context.Context, id string) error {
	ret := db.Called(ctx, id)
	return ret.Error(0)
}

// ClearHistory provides a mock function
func (db *DataStore) ClearHistory(ctx context.Context) error {
	ret := db.Called(ctx)
	return ret.Error(0)
}

// Close provides a mock function
func (db *DataStore) Close() {
	db.Called()
}
