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

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/mendersoftware/go-lib-micro/mongo/migrate"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// DbVersion is the schema version the store expects
const DbVersion = "1.1.0"

// migrations returns the schema migrations in ascending version order
func migrations(client *mongo.Client, db string) []migrate.Migration {
	return []migrate.Migration{
		&migration1_0_0{client: client, db: db},
		&migration1_1_0{client: client, db: db},
	}
}

// Migrate brings the schema of db to version. Without automigrate it only
// fails when the schema is older than version.
func Migrate(
	ctx context.Context,
	db string,
	version string,
	client *mongo.Client,
	automigrate bool,
) error {
	l := log.FromContext(ctx).F(log.Ctx{"db": db})

	target, err := migrate.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "invalid schema version %q", version)
	}
	migrator := migrate.SimpleMigrator{
		Client:      client,
		Db:          db,
		Automigrate: automigrate,
	}
	if err := migrator.Apply(ctx, *target, migrations(client, db)); err != nil {
		return errors.Wrapf(err, "failed to migrate the schema to %s", version)
	}
	l.Debugf("schema at version %s", version)
	return nil
}
