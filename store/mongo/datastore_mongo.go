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

package mongo

import (
	"context"
	"crypto/tls"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/mendersoftware/go-lib-micro/config"
	dconfig "github.com/postai/flows/config"
	"github.com/postai/flows/model"
	"github.com/postai/flows/store"
)

const (
	// WorkflowCollectionName refers to the collection of stored workflows
	WorkflowCollectionName = "workflows"

	// RunsCollectionName refers to the collection of workflow runs
	RunsCollectionName = "runs"

	// HistoryCollectionName refers to the collection of dispatched requests
	HistoryCollectionName = "history"
)

var (
	// projection of a history document on its summary
	historyEntryProjection = bson.M{
		"headers":          0,
		"body":             0,
		"response_headers": 0,
		"response_body":    0,
	}
)

// SetupDataStore returns the mongo data store and optionally runs migrations
func SetupDataStore(automigrate bool) (*DataStoreMongo, error) {
	ctx := context.Background()
	dbClient, err := NewClient(ctx, config.Config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to db")
	}
	err = doMigrations(ctx, dbClient, automigrate)
	if err != nil {
		return nil, err
	}
	dataStore := NewDataStoreWithClient(dbClient, config.Config)
	return dataStore, nil
}

func doMigrations(ctx context.Context, client *Client,
	automigrate bool) error {
	db := config.Config.GetString(dconfig.SettingDbName)
	err := Migrate(ctx, db, DbVersion, &client.Client, automigrate)
	if err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	return nil
}

func disconnectClient(parentCtx context.Context, client *Client) {
	ctx, cancel := context.WithTimeout(parentCtx, 10*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}

// Client is a package specific mongo client
type Client struct {
	mongo.Client
}

// NewClient returns a mongo client
func NewClient(ctx context.Context, c config.Reader) (*Client, error) {

	clientOptions := mopts.Client()
	mongoURL := c.GetString(dconfig.SettingMongo)
	if !strings.Contains(mongoURL, "://") {
		return nil, errors.Errorf("Invalid mongoURL %q: missing schema.",
			mongoURL)
	}
	clientOptions.ApplyURI(mongoURL)

	username := c.GetString(dconfig.SettingDbUsername)
	if username != "" {
		credentials := mopts.Credential{
			Username: c.GetString(dconfig.SettingDbUsername),
		}
		password := c.GetString(dconfig.SettingDbPassword)
		if password != "" {
			credentials.Password = password
			credentials.PasswordSet = true
		}
		clientOptions.SetAuth(credentials)
	}

	if c.GetBool(dconfig.SettingDbSSL) {
		tlsConfig := &tls.Config{}
		tlsConfig.InsecureSkipVerify = c.GetBool(dconfig.SettingDbSSLSkipVerify)
		clientOptions.SetTLSConfig(tlsConfig)
	}

	// Set writeconcern to acknowlage after write has propagated to the
	// mongod instance and commited to the file system journal.
	clientOptions.SetWriteConcern(writeconcern.New(writeconcern.W(1), writeconcern.J(true)))

	if clientOptions.ReplicaSet != nil {
		clientOptions.SetReadConcern(readconcern.Linearizable())
	}

	// Set 10s timeout
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to connect to mongo server")
	}

	// Validate connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "Error reaching mongo server")
	}

	mongoClient := Client{Client: *client}
	return &mongoClient, nil
}

// DataStoreMongo is the data storage service
type DataStoreMongo struct {
	// client holds the reference to the client used to communicate with the
	// mongodb server.
	client *Client
	// dbName contains the name of the database.
	dbName string
	// workflows holds a local cache of workflows; always access it through
	// DataStoreMongo.GetWorkflowByName.
	mu        sync.RWMutex
	workflows map[string]*model.Workflow
}

// NewDataStoreWithClient initializes a DataStore object
func NewDataStoreWithClient(client *Client, c config.Reader) *DataStoreMongo {
	dbName := c.GetString(dconfig.SettingDbName)
	ctx := context.Background()

	// Maybe initialize workflows
	var findResults []*model.Workflow
	workflows := make(map[string]*model.Workflow)
	database := client.Database(dbName)
	collWflows := database.Collection(WorkflowCollectionName)
	cur, err := collWflows.Find(ctx, bson.M{})
	if err == nil {
		if err = cur.All(ctx, &findResults); err == nil {
			for _, workflow := range findResults {
				workflows[workflow.Name] = workflow
			}
		}
	}

	return &DataStoreMongo{
		client:    client,
		dbName:    dbName,
		workflows: workflows,
	}
}

func (db *DataStoreMongo) collection(name string) *mongo.Collection {
	return db.client.Database(db.dbName).Collection(name)
}

// Ping verifies the connection to the database
func (db *DataStoreMongo) Ping(ctx context.Context) error {
	res := db.client.Database(db.dbName).RunCommand(ctx, bson.M{"ping": 1})
	return res.Err()
}

// InsertWorkflows inserts a workflow to the database and cache and returns the number of
// inserted elements or an error for the first error generated.
func (db *DataStoreMongo) InsertWorkflows(
	ctx context.Context,
	workflows ...model.Workflow,
) (int, error) {
	collWflows := db.collection(WorkflowCollectionName)
	for i := range workflows {
		workflow := workflows[i]
		if workflow.Name == "" {
			return i, store.ErrWorkflowMissingName
		}
		workflowDb, _ := db.GetWorkflowByName(ctx, workflow.Name)
		if workflowDb != nil && workflowDb.Version >= workflow.Version {
			return i, store.ErrWorkflowAlreadyExists
		}
		opt := mopts.Replace().SetUpsert(true)
		query := bson.M{"_id": workflow.Name}
		if _, err := collWflows.ReplaceOne(ctx, query, workflow, opt); err != nil {
			return i, err
		}
		db.mu.Lock()
		db.workflows[workflow.Name] = &workflow
		db.mu.Unlock()
	}
	return len(workflows), nil
}

// GetWorkflowByName gets the workflow with the given name - either from the
// cache, or searches the database if the workflow is not cached.
func (db *DataStoreMongo) GetWorkflowByName(
	ctx context.Context,
	workflowName string,
) (*model.Workflow, error) {
	db.mu.RLock()
	workflow, ok := db.workflows[workflowName]
	db.mu.RUnlock()
	if ok {
		return workflow, nil
	}

	var result model.Workflow
	err := db.collection(WorkflowCollectionName).
		FindOne(ctx, bson.M{"_id": workflowName}).
		Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrWorkflowNotFound
	} else if err != nil {
		return nil, err
	}
	db.mu.Lock()
	db.workflows[result.Name] = &result
	db.mu.Unlock()
	return &result, nil
}

// GetWorkflows returns all the stored workflows
func (db *DataStoreMongo) GetWorkflows(ctx context.Context) ([]model.Workflow, error) {
	findOptions := mopts.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := db.collection(WorkflowCollectionName).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	workflows := []model.Workflow{}
	if err := cur.All(ctx, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

// UpsertRun inserts or replaces a run
func (db *DataStoreMongo) UpsertRun(ctx context.Context, run *model.Run) error {
	opt := mopts.Replace().SetUpsert(true)
	_, err := db.collection(RunsCollectionName).
		ReplaceOne(ctx, bson.M{"_id": run.ID}, run, opt)
	return err
}

// GetRunByID returns the run with the given ID
func (db *DataStoreMongo) GetRunByID(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	err := db.collection(RunsCollectionName).
		FindOne(ctx, bson.M{"_id": id}).
		Decode(&run)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunsByWorkflowName returns the runs of a workflow, newest first
func (db *DataStoreMongo) GetRunsByWorkflowName(
	ctx context.Context,
	name string,
	status model.RunStatus,
	limit int,
) ([]model.Run, error) {
	filter := bson.M{"workflow_name": name}
	if status != "" {
		filter["status"] = status
	}
	findOptions := mopts.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}
	cur, err := db.collection(RunsCollectionName).
		Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	runs := []model.Run{}
	if err := cur.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// InsertHistory stores the record of a dispatched request
func (db *DataStoreMongo) InsertHistory(ctx context.Context, detail *model.HistoryDetail) error {
	_, err := db.collection(HistoryCollectionName).InsertOne(ctx, detail)
	if err != nil {
		return errors.Wrap(err, "Error inserting the history record")
	}
	return nil
}

// GetHistory returns the history entries, newest first
func (db *DataStoreMongo) GetHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	findOptions := mopts.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(historyEntryProjection)
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}
	cur, err := db.collection(HistoryCollectionName).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	entries := []model.HistoryEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetHistoryByID returns the full record of a dispatched request
func (db *DataStoreMongo) GetHistoryByID(
	ctx context.Context,
	id string,
) (*model.HistoryDetail, error) {
	var detail model.HistoryDetail
	err := db.collection(HistoryCollectionName).
		FindOne(ctx, bson.M{"_id": id}).
		Decode(&detail)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &detail, nil
}

// DeleteHistory removes a history record
func (db *DataStoreMongo) DeleteHistory(ctx context.Context, id string) error {
	_, err := db.collection(HistoryCollectionName).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ClearHistory removes all the history records
func (db *DataStoreMongo) ClearHistory(ctx context.Context) error {
	_, err := db.collection(HistoryCollectionName).DeleteMany(ctx, bson.M{})
	return err
}

// Close disconnects the client
func (db *DataStoreMongo) Close() {
	ctx := context.Background()
	disconnectClient(ctx, db.client)
}
