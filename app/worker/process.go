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
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/postai/flows/app/planner"
	"github.com/postai/flows/model"
	"github.com/postai/flows/store"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrRunFinished = errors.New("run already finished")

	errInvalidRunRequest = errors.New("invalid run request")
)

// Runner executes workflow runs and keeps their records up to date
type Runner struct {
	store  store.DataStore
	engine *Engine

	mu     sync.Mutex
	active map[string]*activeRun
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner returns a new Runner
func NewRunner(dataStore store.DataStore, engine *Engine) *Runner {
	return &Runner{
		store:  dataStore,
		engine: engine,
		active: make(map[string]*activeRun),
	}
}

// Engine returns the engine executing the runs
func (r *Runner) Engine() *Engine {
	return r.engine
}

// Enqueue stores a pending run for the request
func (r *Runner) Enqueue(ctx context.Context, req *model.RunRequest) (*model.Run, error) {
	run := model.NewRun(req)
	if err := r.store.UpsertRun(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to store the run")
	}
	return run, nil
}

// Execute runs the request to completion and returns the run together with
// the history of the requests it dispatched. A run which is already
// finished is returned as is. GraphErrors are returned along with the
// failed run.
func (r *Runner) Execute(
	ctx context.Context,
	req *model.RunRequest,
) (*model.Run, []model.HistoryDetail, error) {
	l := log.FromContext(ctx)

	var run *model.Run
	if req.RunID != "" {
		var err error
		run, err = r.store.GetRunByID(ctx, req.RunID)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to get the run")
		}
		if run != nil && run.Finished() {
			l.Infof("run %s already %s", run.ID, run.Status)
			return run, nil, nil
		}
	}
	if run == nil {
		run = model.NewRun(req)
	}

	workflow := req.Workflow
	if workflow == nil {
		var err error
		workflow, err = r.store.GetWorkflowByName(ctx, req.WorkflowName)
		if err == store.ErrWorkflowNotFound {
			r.finish(ctx, run, model.RunStatusFailed, err.Error())
			return run, nil, err
		} else if err != nil {
			return nil, nil, errors.Wrap(err, "failed to get the workflow")
		}
	}
	if run.WorkflowName == "" {
		run.WorkflowName = workflow.Name
	}

	plan, err := planner.BuildExecutionPlan(workflow)
	if err != nil {
		l.Warnf("run %s: %s", run.ID, err)
		run.Outcome = model.RunOutcomeStructuralError
		r.finish(ctx, run, model.RunStatusFailed, err.Error())
		return run, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	active := r.register(run.ID, cancel)
	defer r.unregister(run.ID, active)

	startedAt := time.Now().UTC()
	run.Status = model.RunStatusRunning
	run.StartedAt = &startedAt
	if err := r.store.UpsertRun(ctx, run); err != nil {
		return nil, nil, errors.Wrap(err, "failed to update the run")
	}

	info := RunInfo{RunID: run.ID, WorkflowName: run.WorkflowName}
	result := r.engine.RunWithInfo(ctx, info, plan, run.Variables)
	run.Nodes = result.Nodes
	run.Results = result.Results
	run.Outcome = result.Outcome

	status := model.StatusForOutcome(result.Outcome)
	if ctx.Err() != nil || r.cancelledElsewhere(ctx, run.ID) {
		status = model.RunStatusCancelled
	}
	r.finish(ctx, run, status, "")
	return run, result.History, nil
}

// Cancel stops a pending or running run. A run executing in this process
// is interrupted and Cancel returns once its record is final.
func (r *Runner) Cancel(ctx context.Context, runID string) (*model.Run, error) {
	run, err := r.store.GetRunByID(ctx, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get the run")
	} else if run == nil {
		return nil, ErrRunNotFound
	} else if run.Finished() {
		return run, ErrRunFinished
	}

	r.mu.Lock()
	active, running := r.active[runID]
	r.mu.Unlock()
	if !running {
		r.finish(ctx, run, model.RunStatusCancelled, "")
		return run, nil
	}

	active.cancel()
	select {
	case <-active.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	run, err = r.store.GetRunByID(ctx, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get the run")
	} else if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Fail marks a run which cannot be executed as failed
func (r *Runner) Fail(ctx context.Context, run *model.Run, message string) {
	r.finish(ctx, run, model.RunStatusFailed, message)
}

func (r *Runner) finish(
	ctx context.Context,
	run *model.Run,
	status model.RunStatus,
	message string,
) {
	completedAt := time.Now().UTC()
	run.Status = status
	run.Error = message
	run.CompletedAt = &completedAt
	err := r.store.UpsertRun(context.WithoutCancel(ctx), run)
	if err != nil {
		log.FromContext(ctx).Errorf("failed to update run %s: %s", run.ID, err)
	}
}

// cancelledElsewhere reports whether the run was cancelled through another
// process while it was executing here
func (r *Runner) cancelledElsewhere(ctx context.Context, runID string) bool {
	stored, err := r.store.GetRunByID(ctx, runID)
	return err == nil && stored != nil && stored.Status == model.RunStatusCancelled
}

func (r *Runner) register(runID string, cancel context.CancelFunc) *activeRun {
	active := &activeRun{cancel: cancel, done: make(chan struct{})}
	r.mu.Lock()
	r.active[runID] = active
	r.mu.Unlock()
	return active
}

func (r *Runner) unregister(runID string, active *activeRun) {
	r.mu.Lock()
	if r.active[runID] == active {
		delete(r.active, runID)
	}
	r.mu.Unlock()
	close(active.done)
}

// processRun decodes a queued run request and executes it
func processRun(ctx context.Context, data []byte, runner *Runner) error {
	req, err := model.ParseRunRequest(data)
	if err != nil {
		return errors.Wrap(errInvalidRunRequest, err.Error())
	}
	l := log.FromContext(ctx)
	l.Infof("processing run %s workflow %s", req.RunID, req.WorkflowName)
	run, _, err := runner.Execute(ctx, req)
	if err != nil {
		var graphErr *model.GraphError
		if errors.As(err, &graphErr) || err == store.ErrWorkflowNotFound {
			// the run is marked failed; redelivering would not help
			return nil
		}
		return err
	}
	l.Infof("finished run %s workflow %s: %s", run.ID, run.WorkflowName, run.Status)
	return nil
}
