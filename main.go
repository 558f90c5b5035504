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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/postai/flows/app/planner"
	"github.com/postai/flows/app/worker"
	"github.com/postai/flows/client/nats"
	dconfig "github.com/postai/flows/config"
	"github.com/postai/flows/model"
	"github.com/postai/flows/server"
	"github.com/postai/flows/store"
	"github.com/postai/flows/store/mongo"
	"github.com/postai/flows/store/sqlite"
	"github.com/postai/flows/workflow"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func main() {
	var configPath string

	app := cli.NewApp()
	app.Name = "flows"
	app.Usage = "HTTP workflow engine"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "config",
			Usage:       "Configuration `FILE`. Supports JSON, TOML, YAML and HCL formatted configs.",
			Destination: &configPath,
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "server",
			Usage:  "Run the HTTP API server",
			Action: cmdServer,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "automigrate",
					Usage: "Run database migrations before starting.",
				},
			},
		},
		{
			Name:   "worker",
			Usage:  "Run the worker process",
			Action: cmdWorker,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "automigrate",
					Usage: "Run database migrations before starting.",
				},
			},
		},
		{
			Name:   "migrate",
			Usage:  "Run the migrations",
			Action: cmdMigrate,
		},
		{
			Name:      "run",
			Usage:     "Execute a workflow document and print the result",
			ArgsUsage: "[FILE]",
			Action:    cmdRun,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "file, f",
					Usage: "Workflow `FILE` (JSON or YAML)",
				},
				cli.StringSliceFlag{
					Name:  "var",
					Usage: "Input variable as `KEY=VALUE`; can be repeated",
				},
				cli.StringFlag{
					Name:  "output, o",
					Usage: "Output format: json or yaml",
					Value: outputJSON,
				},
				cli.BoolFlag{
					Name:  "save-history",
					Usage: "Record the run and its requests in the configured data store",
				},
			},
		},
	}
	app.Action = cmdServer

	app.Before = func(args *cli.Context) error {
		err := config.FromConfigFile(configPath, dconfig.Defaults)
		if err != nil {
			return cli.NewExitError(
				fmt.Sprintf("error loading configuration: %s", err),
				1)
		}

		// Enable setting config values by environment variables
		config.Config.SetEnvPrefix("FLOWS")
		config.Config.AutomaticEnv()
		config.Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

		log.Setup(config.Config.GetBool(dconfig.SettingDebug))
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.NewEmpty().Fatal(err)
	}
}

func cmdServer(args *cli.Context) error {
	dataStore, err := getDataStore(args.Bool("automigrate"))
	if err != nil {
		return err
	}
	defer dataStore.Close()

	var natsClient nats.Client
	if uri := config.Config.GetString(dconfig.SettingNatsURI); uri != "" {
		natsClient, err = getNatsClient()
		if err != nil {
			return err
		}
		defer natsClient.Close()
	}

	return server.InitAndRun(config.Config, dataStore, natsClient)
}

func cmdWorker(args *cli.Context) error {
	dataStore, err := getDataStore(args.Bool("automigrate"))
	if err != nil {
		return err
	}
	defer dataStore.Close()

	natsClient, err := getNatsClient()
	if err != nil {
		return err
	}
	defer natsClient.Close()

	return worker.InitAndRun(config.Config, dataStore, natsClient)
}

func cmdMigrate(args *cli.Context) error {
	dataStore, err := getDataStore(true)
	if err != nil {
		return err
	}
	dataStore.Close()
	return nil
}

func cmdRun(args *cli.Context) error {
	ctx := context.Background()

	path := args.String("file")
	if path == "" {
		path = args.Args().First()
	}
	if path == "" {
		return cli.NewExitError("missing workflow file", 1)
	}
	output := strings.ToLower(args.String("output"))
	if output != outputJSON && output != outputYAML {
		return cli.NewExitError(fmt.Sprintf("unknown output format %q", output), 1)
	}
	variables, err := parseVariables(args.StringSlice("var"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	wf, err := workflow.ParseWorkflowFromFile(path)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to read %s: %s", path, err), 1)
	}

	var result interface{}
	var outcome model.RunOutcome
	if args.Bool("save-history") {
		dataStore, err := getDataStore(true)
		if err != nil {
			return err
		}
		defer dataStore.Close()
		runner := worker.NewRunnerFromConfig(config.Config, dataStore)
		run, history, err := runner.Execute(ctx, &model.RunRequest{
			WorkflowName: wf.Name,
			Variables:    variables,
			Workflow:     wf,
		})
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		outcome = run.Outcome
		result = &model.RunResult{Outcome: run.Outcome, Nodes: run.Nodes, History: history}
	} else {
		plan, err := planner.BuildExecutionPlan(wf)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		engine := worker.NewEngineFromConfig(config.Config, nil)
		runResult := engine.Run(ctx, plan, variables)
		outcome = runResult.Outcome
		result = runResult
	}

	if err := printResult(os.Stdout, output, result); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if outcome != model.RunOutcomeAllSucceeded {
		return cli.NewExitError(fmt.Sprintf("run finished: %s", outcome), 2)
	}
	return nil
}

func parseVariables(values []string) (map[string]string, error) {
	variables := make(map[string]string, len(values))
	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("invalid variable %q: expected KEY=VALUE", value)
		}
		variables[key] = val
	}
	return variables, nil
}

func printResult(w io.Writer, output string, result interface{}) error {
	var (
		data []byte
		err  error
	)
	if output == outputYAML {
		data, err = yaml.Marshal(result)
	} else {
		data, err = json.MarshalIndent(result, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func getDataStore(automigrate bool) (store.DataStore, error) {
	switch driver := config.Config.GetString(dconfig.SettingDbDriver); driver {
	case dconfig.DbDriverSQLite:
		dataStore, err := sqlite.SetupDataStore(context.Background())
		if err != nil {
			return nil, cli.NewExitError(err.Error(), 3)
		}
		return dataStore, nil
	case dconfig.DbDriverMongo, "":
		dataStore, err := mongo.SetupDataStore(automigrate)
		if err != nil {
			return nil, cli.NewExitError(err.Error(), 3)
		}
		return dataStore, nil
	default:
		return nil, cli.NewExitError(fmt.Sprintf("unknown db driver %q", driver), 1)
	}
}

func getNatsClient() (nats.Client, error) {
	natsURI := config.Config.GetString(dconfig.SettingNatsURI)
	streamName := config.Config.GetString(dconfig.SettingNatsStreamName)
	natsClient, err := nats.NewClientWithDefaults(natsURI, streamName)
	if err != nil {
		return nil, cli.NewExitError(
			fmt.Sprintf("failed to connect to nats: %v", err),
			3)
	}
	return natsClient, nil
}
