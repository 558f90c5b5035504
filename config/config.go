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

package config

import (
	"github.com/mendersoftware/go-lib-micro/config"
)

const (
	// SettingListen is the config key for the listen address
	SettingListen = "listen"
	// SettingListenDefault is the default value for the listen address
	SettingListenDefault = ":8080"

	// SettingDebug is the config key for verbose logging
	SettingDebug = "debug"
	// SettingDebugDefault is the default value for verbose logging
	SettingDebugDefault = false

	// SettingDbDriver is the config key for the history/workflow storage backend
	SettingDbDriver = "db-driver"
	// SettingDbDriverDefault is the default storage backend
	SettingDbDriverDefault = DbDriverMongo

	// SettingMongo is the config key for the mongo URL
	SettingMongo = "mongo-url"
	// SettingMongoDefault is the default value for the mongo URL
	SettingMongoDefault = "mongodb://localhost"

	// SettingDbName is the config key for the mongo database name
	SettingDbName = "mongo-dbname"
	// SettingDbNameDefault is the default value for the mongo database name
	SettingDbNameDefault = "flows"

	// SettingDbSSL is the config key for the mongo SSL setting
	SettingDbSSL = "mongo_ssl"
	// SettingDbSSLDefault is the default value for the mongo SSL setting
	SettingDbSSLDefault = false

	// SettingDbSSLSkipVerify is the config key for the mongo SSL skip verify setting
	SettingDbSSLSkipVerify = "mongo_ssl_skipverify"
	// SettingDbSSLSkipVerifyDefault is the default value for the mongo SSL skip verify setting
	SettingDbSSLSkipVerifyDefault = false

	// SettingDbUsername is the config key for the mongo username
	SettingDbUsername = "mongo_username"

	// SettingDbPassword is the config key for the mongo password
	SettingDbPassword = "mongo_password"

	// SettingSQLitePath is the config key for the sqlite database file
	SettingSQLitePath = "sqlite-path"
	// SettingSQLitePathDefault is the default sqlite database file
	SettingSQLitePathDefault = "flows.db"

	// SettingWorkflowsPath is the config key for the workflows path
	SettingWorkflowsPath = "workflows_path"

	// SettingNatsURI is the config key for the nats uri
	SettingNatsURI = "nats_uri"
	// SettingNatsURIDefault is the default value for the nats uri
	SettingNatsURIDefault = "nats://localhost:4222"

	// SettingNatsStreamName is the config key for the nats stream name
	SettingNatsStreamName = "nats_stream_name"
	// SettingNatsStreamNameDefault is the default value for the nats stream name
	SettingNatsStreamNameDefault = "FLOWS"

	// SettingNatsSubscriberTopic is the config key for the nats subscriber topic name
	SettingNatsSubscriberTopic = "nats_subscriber_topic"
	// SettingNatsSubscriberTopicDefault is the default value for the nats subscriber topic name
	SettingNatsSubscriberTopicDefault = "runs"

	// SettingNatsSubscriberDurable is the config key for the nats subscriber durable name
	SettingNatsSubscriberDurable = "nats_subscriber_durable"
	// SettingNatsSubscriberDurableDefault is the default value for the nats subscriber durable
	// name
	SettingNatsSubscriberDurableDefault = "flows-worker"

	// SettingNatsAckWait is the config key for the ack wait (seconds) of the consumer
	SettingNatsAckWait = "nats_ack_wait"
	// SettingNatsAckWaitDefault is the default ack wait
	SettingNatsAckWaitDefault = 30

	// SettingNatsMaxDeliver is the config key for the maximum number of redeliveries
	SettingNatsMaxDeliver = "nats_max_deliver"
	// SettingNatsMaxDeliverDefault is the default number of redeliveries
	SettingNatsMaxDeliverDefault = 3

	// SettingNatsMaxPending is the config key for the maximum number of unacked runs
	SettingNatsMaxPending = "nats_max_pending"
	// SettingNatsMaxPendingDefault is the default number of unacked runs
	SettingNatsMaxPendingDefault = 100

	// SettingConcurrency is the config key for the number of runs a worker
	// executes in parallel
	SettingConcurrency = "concurrency"
	// SettingConcurrencyDefault is the default number of parallel runs
	SettingConcurrencyDefault = 10

	// SettingRunConcurrency is the config key for the maximum number of
	// requests a single run dispatches in parallel across sibling branches
	SettingRunConcurrency = "run_concurrency"
	// SettingRunConcurrencyDefault is the default per-run dispatch concurrency
	SettingRunConcurrencyDefault = 8

	// SettingRequestTimeout is the config key for the default request timeout in seconds
	SettingRequestTimeout = "request_timeout"
	// SettingRequestTimeoutDefault is the default request timeout in seconds
	SettingRequestTimeoutDefault = 30

	// SettingHistoryLimit is the config key for the default page size of the history list
	SettingHistoryLimit = "history_limit"
	// SettingHistoryLimitDefault is the default page size of the history list
	SettingHistoryLimitDefault = 50

	// SettingCORSAllowedOrigins is the config key for the origins allowed to call the API
	SettingCORSAllowedOrigins = "cors_allowed_origins"
)

// Storage backends
const (
	DbDriverMongo  = "mongo"
	DbDriverSQLite = "sqlite"
)

var (
	// Defaults are the default configuration settings
	Defaults = []config.Default{
		{Key: SettingListen, Value: SettingListenDefault},
		{Key: SettingDebug, Value: SettingDebugDefault},
		{Key: SettingDbDriver, Value: SettingDbDriverDefault},
		{Key: SettingMongo, Value: SettingMongoDefault},
		{Key: SettingDbName, Value: SettingDbNameDefault},
		{Key: SettingDbSSL, Value: SettingDbSSLDefault},
		{Key: SettingDbSSLSkipVerify, Value: SettingDbSSLSkipVerifyDefault},
		{Key: SettingSQLitePath, Value: SettingSQLitePathDefault},
		{Key: SettingNatsURI, Value: SettingNatsURIDefault},
		{Key: SettingNatsStreamName, Value: SettingNatsStreamNameDefault},
		{Key: SettingNatsSubscriberTopic, Value: SettingNatsSubscriberTopicDefault},
		{Key: SettingNatsSubscriberDurable, Value: SettingNatsSubscriberDurableDefault},
		{Key: SettingNatsAckWait, Value: SettingNatsAckWaitDefault},
		{Key: SettingNatsMaxDeliver, Value: SettingNatsMaxDeliverDefault},
		{Key: SettingNatsMaxPending, Value: SettingNatsMaxPendingDefault},
		{Key: SettingConcurrency, Value: SettingConcurrencyDefault},
		{Key: SettingRunConcurrency, Value: SettingRunConcurrencyDefault},
		{Key: SettingRequestTimeout, Value: SettingRequestTimeoutDefault},
		{Key: SettingHistoryLimit, Value: SettingHistoryLimitDefault},
		{Key: SettingCORSAllowedOrigins, Value: []string{"*"}},
	}
)
