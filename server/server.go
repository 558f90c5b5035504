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

package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"golang.org/x/sys/unix"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"

	api "github.com/postai/flows/api/http"
	"github.com/postai/flows/app/worker"
	"github.com/postai/flows/client/nats"
	dconfig "github.com/postai/flows/config"
	"github.com/postai/flows/store"
)

const shutdownTimeout = 5 * time.Second

// NewHandler returns the API handler wrapped by the CORS middleware
func NewHandler(
	conf config.Reader,
	dataStore store.DataStore,
	natsClient nats.Client,
) http.Handler {
	runner := worker.NewRunnerFromConfig(conf, dataStore)
	router := api.NewRouter(dataStore, natsClient, runner, api.Config{
		HistoryLimit: conf.GetInt(dconfig.SettingHistoryLimit),
		Topic:        conf.GetString(dconfig.SettingNatsSubscriberTopic),
	})
	return cors.New(cors.Options{
		AllowedOrigins: conf.GetStringSlice(dconfig.SettingCORSAllowedOrigins),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}).Handler(router)
}

// InitAndRun initializes the server and runs it. natsClient may be nil.
func InitAndRun(
	conf config.Reader,
	dataStore store.DataStore,
	natsClient nats.Client,
) error {
	ctx := context.Background()
	l := log.FromContext(ctx)

	if path := conf.GetString(dconfig.SettingWorkflowsPath); path != "" {
		if err := store.LoadWorkflows(ctx, dataStore, path); err != nil {
			return err
		}
	}
	if natsClient != nil {
		if err := natsClient.CreateStream(); err != nil {
			return errors.Wrap(err, "failed to create the nats stream")
		}
	}

	var listen = conf.GetString(dconfig.SettingListen)
	srv := &http.Server{
		Addr:              listen,
		Handler:           NewHandler(conf, dataStore, natsClient),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		l.Infof("listening on %s", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(quit)
	select {
	case sig := <-quit:
		l.Infof("received signal %s: shutting down server", sig)
	case err := <-serveErr:
		return errors.Wrap(err, "failed to listen")
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shut down the server")
	}
	return nil
}
