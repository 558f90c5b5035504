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

	"github.com/mendersoftware/go-lib-micro/mongo/migrate"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopts "go.mongodb.org/mongo-driver/mongo/options"
)

type migration1_0_0 struct {
	client *mongo.Client
	db     string
}

// Up creates the indexes of the runs and history collections
func (m *migration1_0_0) Up(from migrate.Version) error {
	ctx := context.Background()
	database := m.client.Database(m.db)

	_, err := database.Collection(HistoryCollectionName).Indexes().CreateMany(ctx,
		[]mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "created_at", Value: -1},
					{Key: "_id", Value: -1},
				},
				Options: mopts.Index().SetName("created_at"),
			},
			{
				Keys:    bson.D{{Key: "run_id", Value: 1}},
				Options: mopts.Index().SetName("run_id"),
			},
		})
	if err != nil {
		return err
	}

	_, err = database.Collection(RunsCollectionName).Indexes().CreateMany(ctx,
		[]mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "workflow_name", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: mopts.Index().SetName("workflow_name_created_at"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}},
				Options: mopts.Index().SetName("status"),
			},
		})
	return err
}

func (m *migration1_0_0) Version() migrate.Version {
	return migrate.MakeVersion(1, 0, 0)
}
