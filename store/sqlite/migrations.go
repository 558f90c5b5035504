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

package sqlite

// migrations[i] upgrades the schema from user_version i to i+1
var migrations = [][]string{
	{
		`CREATE TABLE workflows (
			name     TEXT PRIMARY KEY,
			version  INTEGER NOT NULL,
			document TEXT NOT NULL
		)`,
		`CREATE TABLE runs (
			id            TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			status        TEXT NOT NULL,
			created_at    INTEGER NOT NULL,
			document      TEXT NOT NULL
		)`,
		`CREATE INDEX runs_workflow_name_created_at
			ON runs (workflow_name, created_at DESC)`,
		`CREATE TABLE history (
			id         TEXT PRIMARY KEY,
			run_id     TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			entry      TEXT NOT NULL,
			detail     TEXT NOT NULL
		)`,
		`CREATE INDEX history_created_at ON history (created_at DESC, id DESC)`,
		`CREATE INDEX history_run_id ON history (run_id)`,
	},
}
