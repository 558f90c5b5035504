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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mendersoftware/go-lib-micro/config"

	dconfig "github.com/postai/flows/config"
	"github.com/postai/flows/store/mock"
)

func TestNewRunnerFromConfig(t *testing.T) {
	config.Config.Set(dconfig.SettingRunConcurrency, 3)
	config.Config.Set(dconfig.SettingRequestTimeout, 7)
	defer func() {
		config.Config.Set(dconfig.SettingRunConcurrency, dconfig.SettingRunConcurrencyDefault)
		config.Config.Set(dconfig.SettingRequestTimeout, dconfig.SettingRequestTimeoutDefault)
	}()

	dataStore := mock.NewDataStore()
	runner := NewRunnerFromConfig(config.Config, dataStore)
	engine := runner.Engine()
	assert.Equal(t, int64(3), engine.Concurrency)
	assert.Equal(t, 7*time.Second, engine.DefaultTimeout)
	assert.Equal(t, dataStore, engine.Recorder)
	assert.IsType(t, &HTTPDispatcher{}, engine.Dispatcher)

	engine = NewEngineFromConfig(config.Config, nil)
	assert.Nil(t, engine.Recorder)
}

func TestConsumerConfig(t *testing.T) {
	config.Config.Set(dconfig.SettingNatsSubscriberTopic, "runs")
	config.Config.Set(dconfig.SettingConcurrency, 0)
	config.Config.Set(dconfig.SettingNatsAckWait, 30)
	config.Config.Set(dconfig.SettingNatsMaxDeliver, 3)
	config.Config.Set(dconfig.SettingNatsMaxPending, 100)
	defer config.Config.Set(dconfig.SettingConcurrency, dconfig.SettingConcurrencyDefault)

	cfg := ConsumerConfig(config.Config, "FLOWS")
	assert.Equal(t, "FLOWS.runs", cfg.Filter)
	assert.Equal(t, 1, cfg.MaxWaiting)
	assert.Equal(t, 3, cfg.MaxDeliver)
	assert.Equal(t, 100, cfg.MaxPending)
	assert.Equal(t, 30*time.Second, cfg.AckWait)
	assert.True(t, cfg.AutoReplace)
	assert.NoError(t, cfg.Validate())
}
