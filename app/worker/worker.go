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
	"os"
	"os/signal"
	"time"

	natsio "github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/postai/flows/client/nats"
	dconfig "github.com/postai/flows/config"
	"github.com/postai/flows/store"
)

// NewEngineFromConfig returns an Engine which dispatches over HTTP with
// the configured limits. recorder may be nil.
func NewEngineFromConfig(conf config.Reader, recorder HistoryRecorder) *Engine {
	engine := NewEngine(NewHTTPDispatcher(), recorder)
	if concurrency := conf.GetInt(dconfig.SettingRunConcurrency); concurrency > 0 {
		engine.Concurrency = int64(concurrency)
	}
	if timeout := conf.GetInt(dconfig.SettingRequestTimeout); timeout > 0 {
		engine.DefaultTimeout = time.Duration(timeout) * time.Second
	}
	return engine
}

// NewRunnerFromConfig returns a Runner which records runs and history in
// the data store
func NewRunnerFromConfig(conf config.Reader, dataStore store.DataStore) *Runner {
	return NewRunner(dataStore, NewEngineFromConfig(conf, dataStore))
}

// ConsumerConfig returns the configuration of the durable run consumer
func ConsumerConfig(conf config.Reader, streamName string) nats.ConsumerConfig {
	topic := conf.GetString(dconfig.SettingNatsSubscriberTopic)
	concurrency := conf.GetInt(dconfig.SettingConcurrency)
	if concurrency < 1 {
		concurrency = 1
	}
	return nats.ConsumerConfig{
		AutoReplace: true,
		Filter:      streamName + "." + topic,
		MaxPending:  conf.GetInt(dconfig.SettingNatsMaxPending),
		MaxWaiting:  concurrency,
		MaxDeliver:  conf.GetInt(dconfig.SettingNatsMaxDeliver),
		AckWait:     time.Duration(conf.GetInt(dconfig.SettingNatsAckWait)) * time.Second,
	}
}

// InitAndRun initializes the worker and runs it
func InitAndRun(
	conf config.Reader,
	dataStore store.DataStore,
	natsClient nats.Client,
) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := log.FromContext(ctx)

	if path := conf.GetString(dconfig.SettingWorkflowsPath); path != "" {
		if err := store.LoadWorkflows(ctx, dataStore, path); err != nil {
			return err
		}
	}

	streamName := natsClient.StreamName()
	if err := natsClient.CreateStream(); err != nil {
		return errors.Wrap(err, "failed to create the nats stream")
	}
	durable := conf.GetString(dconfig.SettingNatsSubscriberDurable)
	consumerConfig := ConsumerConfig(conf, streamName)
	if err := natsClient.CreateConsumer(durable, consumerConfig); err != nil {
		return errors.Wrap(err, "failed to create the nats consumer")
	}

	channel := make(chan *natsio.Msg)
	sub, err := natsClient.Subscribe(ctx, durable, channel)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to the nats consumer")
	}
	subErr := make(chan error, 1)
	go func() {
		subErr <- sub.ListenAndServe()
	}()

	runner := NewRunnerFromConfig(conf, dataStore)
	concurrency := conf.GetInt(dconfig.SettingConcurrency)
	if concurrency < 1 {
		concurrency = 1
	}
	group := NewWorkGroup(channel, consumerConfig.AckWait/2, runner)
	for i := 0; i < concurrency; i++ {
		go group.RunWorker(ctx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(quit)
	select {
	case sig := <-quit:
		l.Infof("received signal %s: shutting down worker", sig)
	case err = <-subErr:
		if err != nil {
			l.Errorf("subscription terminated: %s", err)
		}
	case <-group.FirstDone():
		err = errors.Errorf("worker %d terminated unexpectedly", group.TermID())
	}

	_ = sub.Close()
	cancel()
	select {
	case <-group.Done():
	case <-time.After(consumerConfig.AckWait):
		l.Warn("timeout waiting for the workers to finish")
	}
	return err
}
