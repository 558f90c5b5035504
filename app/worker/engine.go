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
	"golang.org/x/sync/semaphore"

	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/postai/flows/app/planner"
	"github.com/postai/flows/app/processor"
	"github.com/postai/flows/model"
)

const (
	defaultConcurrency = 8
	defaultTimeout     = 30 * time.Second
)

// HistoryRecorder stores the record of every dispatched request
type HistoryRecorder interface {
	InsertHistory(ctx context.Context, detail *model.HistoryDetail) error
}

// Engine executes plans. Sibling branches run concurrently; a node starts
// once all its predecessors are done.
type Engine struct {
	Dispatcher Dispatcher
	// Recorder is optional
	Recorder HistoryRecorder
	// Concurrency bounds the number of requests of one run in flight
	Concurrency int64
	// DefaultTimeout applies to request nodes which set no timeout
	DefaultTimeout time.Duration
}

// NewEngine returns a new Engine with the default limits
func NewEngine(dispatcher Dispatcher, recorder HistoryRecorder) *Engine {
	return &Engine{
		Dispatcher:     dispatcher,
		Recorder:       recorder,
		Concurrency:    defaultConcurrency,
		DefaultTimeout: defaultTimeout,
	}
}

// RunInfo identifies the run the history records belong to
type RunInfo struct {
	RunID        string
	WorkflowName string
}

type nodeOutcome struct {
	result model.NodeResult
	branch string
	// scope is what the node exposes to its successors
	scope *processor.Scope
	done  chan struct{}
}

type execution struct {
	*Engine
	info     RunInfo
	plan     *planner.Plan
	outcomes []*nodeOutcome
	index    map[string]int
	sem      *semaphore.Weighted

	mu      sync.Mutex
	history []model.HistoryDetail
}

// Run executes the plan with the given input variables, which override
// the workflow defaults
func (e *Engine) Run(
	ctx context.Context,
	plan *planner.Plan,
	variables map[string]string,
) *model.RunResult {
	return e.RunWithInfo(ctx, RunInfo{WorkflowName: plan.WorkflowName}, plan, variables)
}

// RunWithInfo is Run, tagging the history records with the run information
func (e *Engine) RunWithInfo(
	ctx context.Context,
	info RunInfo,
	plan *planner.Plan,
	variables map[string]string,
) *model.RunResult {
	concurrency := e.Concurrency
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if info.WorkflowName == "" {
		info.WorkflowName = plan.WorkflowName
	}
	x := &execution{
		Engine:   e,
		info:     info,
		plan:     plan,
		outcomes: make([]*nodeOutcome, len(plan.Steps)),
		index:    make(map[string]int, len(plan.Steps)),
		sem:      semaphore.NewWeighted(concurrency),
	}
	for i, step := range plan.Steps {
		x.index[step.Node.ID] = i
		x.outcomes[i] = &nodeOutcome{
			result: model.NodeResult{
				NodeID: step.Node.ID,
				Kind:   step.Node.Kind,
				State:  model.NodeStatePending,
			},
			done: make(chan struct{}),
		}
	}

	vars := make(map[string]string, len(plan.Variables)+len(variables))
	for key, value := range plan.Variables {
		vars[key] = value
	}
	for key, value := range variables {
		vars[key] = value
	}
	root := processor.NewScope(vars)

	l := log.FromContext(ctx)
	l.Infof("run %s: executing workflow %s (%d nodes)",
		info.RunID, info.WorkflowName, len(plan.Steps))

	var wg sync.WaitGroup
	wg.Add(len(plan.Steps))
	for i := range plan.Steps {
		go func(i int) {
			defer wg.Done()
			x.executeStep(ctx, i, root)
		}(i)
	}
	wg.Wait()

	result := &model.RunResult{
		Outcome: model.RunOutcomeAllSucceeded,
		Nodes:   make([]model.NodeResult, len(x.outcomes)),
		History: x.history,
	}
	if result.History == nil {
		result.History = []model.HistoryDetail{}
	}
	for i, outcome := range x.outcomes {
		result.Nodes[i] = outcome.result
		if isFailure(outcome.result) {
			result.Outcome = model.RunOutcomePartialFailure
		}
		if res, ok := endResult(plan.Steps[i].Node, outcome.result); ok {
			result.Results = append(result.Results, res)
		}
	}
	l.Infof("run %s: workflow %s finished: %s",
		info.RunID, info.WorkflowName, result.Outcome)
	return result
}

// isFailure reports whether the node failed or was skipped because
// something upstream failed
func isFailure(result model.NodeResult) bool {
	switch result.State {
	case model.NodeStateFailed:
		return true
	case model.NodeStateSkipped:
		return result.SkipReason != model.SkipReasonBranchNotTaken
	}
	return false
}

// endResult returns the result reported by an end node which was reached
// and names a result variable
func endResult(node model.Node, result model.NodeResult) (model.EndResult, bool) {
	if node.Kind != model.NodeKindEnd || node.End == nil ||
		node.End.ResultVariable == "" || result.State != model.NodeStateSucceeded {
		return model.EndResult{}, false
	}
	label := node.End.ResultLabel
	if label == "" {
		label = model.DefaultResultLabel
	}
	return model.EndResult{
		NodeID:   node.ID,
		Label:    label,
		Variable: node.End.ResultVariable,
		Value:    result.Value,
	}, true
}

func (x *execution) executeStep(ctx context.Context, i int, root *processor.Scope) {
	step := x.plan.Steps[i]
	outcome := x.outcomes[i]
	defer close(outcome.done)

	scope := root
	if len(step.Incoming) > 0 {
		var (
			failed bool
			fired  bool
		)
		scope = nil
		for _, edge := range step.Incoming {
			pred := x.outcomes[x.index[edge.Source]]
			<-pred.done
			switch {
			case isFailure(pred.result):
				failed = true
			case pred.result.State == model.NodeStateSucceeded &&
				(edge.Branch == "" || edge.Branch == pred.branch):
				fired = true
				if scope == nil {
					scope = pred.scope
				} else {
					scope = scope.Merge(pred.scope)
				}
			}
		}
		if failed {
			outcome.skip(model.SkipReasonAncestorFailed)
			return
		} else if !fired {
			outcome.skip(model.SkipReasonBranchNotTaken)
			return
		}
	}
	if ctx.Err() != nil {
		outcome.skip(model.SkipReasonCancelled)
		return
	}

	l := log.FromContext(ctx).F(log.Ctx{
		"run_id":  x.info.RunID,
		"node_id": step.Node.ID,
		"kind":    step.Node.Kind,
	})
	ctx = log.WithContext(ctx, l)
	outcome.scope = scope

	start := time.Now()
	switch step.Node.Kind {
	case model.NodeKindStart:
		outcome.result.State = model.NodeStateSucceeded
	case model.NodeKindEnd:
		if end := step.Node.End; end != nil && end.ResultVariable != "" {
			outcome.result.Variable = end.ResultVariable
			if value, ok := scope.Lookup(end.ResultVariable); ok {
				outcome.result.Value = &value
			}
		}
		outcome.result.State = model.NodeStateSucceeded
	case model.NodeKindVariable:
		variable := step.Node.Variable
		value := scope.Resolve(variable.Value)
		outcome.scope = scope.WithVariable(variable.Name, value)
		outcome.result.Variable = variable.Name
		outcome.result.Value = &value
		outcome.result.State = model.NodeStateSucceeded
		l.Debugf("variable %s set to %q", variable.Name, value)
	case model.NodeKindCondition:
		condition := step.Node.Condition
		left, right := scope.Resolve(condition.Left), scope.Resolve(condition.Right)
		outcome.branch = branchOf(evaluateCondition(condition.ConditionType, left, right))
		outcome.result.Branch = outcome.branch
		outcome.result.State = model.NodeStateSucceeded
		l.Debugf("condition %s(%q, %q) took the %s branch",
			condition.ConditionType, left, right, outcome.branch)
	case model.NodeKindDelay:
		if err := sleep(ctx, time.Duration(step.Node.Delay.DelayMs)*time.Millisecond); err != nil {
			outcome.fail(errors.Wrap(err, "delay interrupted"))
		} else {
			outcome.result.State = model.NodeStateSucceeded
		}
	case model.NodeKindRequest:
		x.executeRequest(ctx, step.Node, outcome)
	default:
		outcome.fail(errors.Errorf("unsupported node kind %q", step.Node.Kind))
	}
	outcome.result.Duration = time.Since(start).Milliseconds()
	l.Infof("node %s: %s", step.Node.ID, outcome.result.State)
}

func (x *execution) executeRequest(ctx context.Context, node model.Node, outcome *nodeOutcome) {
	l := log.FromContext(ctx)
	if err := x.sem.Acquire(ctx, 1); err != nil {
		outcome.skip(model.SkipReasonCancelled)
		return
	}
	defer x.sem.Release(1)

	outcome.result.State = model.NodeStateResolving
	req := resolveRequest(node.Request, outcome.scope, x.timeout())
	detail := newHistoryDetail(node.Request, req)
	detail.RunID = x.info.RunID
	detail.NodeID = node.ID
	detail.WorkflowName = x.info.WorkflowName
	l.Debugf("resolved request: %s %s", req.Method, req.URL)

	outcome.result.State = model.NodeStateDispatching
	res, elapsed, err := dispatch(ctx, x.Dispatcher, req)
	complete(detail, res, err, elapsed)
	outcome.result.HistoryID = detail.ID

	if err != nil {
		l.Warnf("request %s %s failed: %s", req.Method, req.URL, err)
		outcome.fail(err)
	} else {
		outcome.result.State = model.NodeStateSucceeded
		outcome.result.StatusCode = detail.StatusCode
		if name := node.Request.OutputVariable; name != "" {
			outcome.scope = outcome.scope.With(name, outputOf(res))
		}
	}

	x.mu.Lock()
	x.history = append(x.history, *detail)
	x.mu.Unlock()

	x.record(ctx, detail)
}

func (e *Engine) record(ctx context.Context, detail *model.HistoryDetail) {
	if e.Recorder == nil {
		return
	}
	err := e.Recorder.InsertHistory(context.WithoutCancel(ctx), detail)
	if err != nil {
		log.FromContext(ctx).Errorf("failed to record history %s: %s", detail.ID, err)
	}
}

// dispatch sends the request, returning a *TransportError on failure
func dispatch(
	ctx context.Context,
	dispatcher Dispatcher,
	req *DispatchRequest,
) (*DispatchResponse, time.Duration, error) {
	start := time.Now()
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	res, err := dispatcher.Send(ctx, req)
	elapsed := time.Since(start)
	if err == nil && res == nil {
		err = errors.New("no response")
	}
	if err != nil {
		return nil, elapsed, classifyTransportError(err, req.Timeout)
	}
	return res, elapsed, nil
}

// SendRequest resolves and dispatches a single request outside of any
// workflow. The record is stored when save is set.
func (e *Engine) SendRequest(
	ctx context.Context,
	config *model.RequestConfig,
	variables map[string]string,
	save bool,
) *model.HistoryDetail {
	req := resolveRequest(config, processor.NewScope(variables), e.timeout())
	detail := newHistoryDetail(config, req)
	res, elapsed, err := dispatch(ctx, e.Dispatcher, req)
	complete(detail, res, err, elapsed)
	if save {
		e.record(ctx, detail)
	}
	return detail
}

func (e *Engine) timeout() time.Duration {
	if e.DefaultTimeout <= 0 {
		return defaultTimeout
	}
	return e.DefaultTimeout
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *nodeOutcome) skip(reason model.SkipReason) {
	o.result.State = model.NodeStateSkipped
	o.result.SkipReason = reason
}

func (o *nodeOutcome) fail(err error) {
	o.result.State = model.NodeStateFailed
	o.result.Error = err.Error()
}
