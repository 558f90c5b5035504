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

type migration1_1_0 struct {
	client *mongo.Client
	db     string
}

// Up indexes the runs by workflow and status, for the filtered listing
func (m *migration1_1_0) Up(from migrate.Version) error {
	ctx := context.Background()
	_, err := m.client.Database(m.db).Collection(RunsCollectionName).Indexes().
		CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{
				{Key: "workflow_name", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: mopts.Index().SetName("workflow_name_status_created_at"),
		})
	return err
}

func (m *migration1_1_0) Version() migrate.Version {
	return migrate.MakeVersion(1, 1, 0)
}
