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

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"

	dconfig "github.com/postai/flows/config"
	"github.com/postai/flows/model"
	"github.com/postai/flows/store"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// SetupDataStore opens the sqlite database configured in config.Config
func SetupDataStore(ctx context.Context) (*DataStoreSQLite, error) {
	path := config.Config.GetString(dconfig.SettingSQLitePath)
	return NewDataStore(ctx, path)
}

// DataStoreSQLite is the single-file data storage service
type DataStoreSQLite struct {
	db *sql.DB
}

// NewDataStore opens (or creates) the database at path and migrates it
// to the latest schema version.
func NewDataStore(ctx context.Context, path string) (*DataStoreSQLite, error) {
	params := url.Values{
		"_pragma": []string{
			"busy_timeout(10000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}
	dsn := fmt.Sprintf("file:%s?%s", path, params.Encode())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open the sqlite database")
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to open the sqlite database")
	}

	dataStore := &DataStoreSQLite{db: db}
	if err := dataStore.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return dataStore, nil
}

// Migrate applies the schema migrations the database has not seen yet
func (s *DataStoreSQLite) Migrate(ctx context.Context) error {
	l := log.FromContext(ctx)

	var version int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	if err != nil {
		return errors.Wrap(err, "failed to read the schema version")
	}
	for i := version; i < len(migrations); i++ {
		l.Infof("migrating the sqlite schema to version %d", i+1)
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
		for _, stmt := range migrations[i] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return errors.Wrapf(err, "failed to apply migration %d", i+1)
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to apply migration %d", i+1)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "failed to apply migration %d", i+1)
		}
	}
	return nil
}

// Ping verifies the database is reachable
func (s *DataStoreSQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertWorkflows stores the workflows and returns the number of inserted
// elements or an error for the first error generated.
func (s *DataStoreSQLite) InsertWorkflows(
	ctx context.Context,
	workflows ...model.Workflow,
) (int, error) {
	for i := range workflows {
		workflow := workflows[i]
		if workflow.Name == "" {
			return i, store.ErrWorkflowMissingName
		}
		var version int
		err := s.db.QueryRowContext(ctx,
			"SELECT version FROM workflows WHERE name = ?", workflow.Name).
			Scan(&version)
		if err == nil && version >= workflow.Version {
			return i, store.ErrWorkflowAlreadyExists
		} else if err != nil && err != sql.ErrNoRows {
			return i, err
		}
		document, err := json.Marshal(workflow)
		if err != nil {
			return i, err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO workflows (name, version, document) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				version = excluded.version,
				document = excluded.document`,
			workflow.Name, workflow.Version, string(document))
		if err != nil {
			return i, err
		}
	}
	return len(workflows), nil
}

// GetWorkflowByName returns the workflow with the given name
func (s *DataStoreSQLite) GetWorkflowByName(
	ctx context.Context,
	name string,
) (*model.Workflow, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM workflows WHERE name = ?", name).
		Scan(&document)
	if err == sql.ErrNoRows {
		return nil, store.ErrWorkflowNotFound
	} else if err != nil {
		return nil, err
	}
	var workflow model.Workflow
	if err := json.Unmarshal([]byte(document), &workflow); err != nil {
		return nil, errors.Wrapf(err, "corrupted workflow %s", name)
	}
	return &workflow, nil
}

// GetWorkflows returns all the stored workflows
func (s *DataStoreSQLite) GetWorkflows(ctx context.Context) ([]model.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT document FROM workflows ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workflows := []model.Workflow{}
	for rows.Next() {
		var (
			document string
			workflow model.Workflow
		)
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(document), &workflow); err != nil {
			return nil, errors.Wrap(err, "corrupted workflow")
		}
		workflows = append(workflows, workflow)
	}
	return workflows, rows.Err()
}

// UpsertRun inserts or replaces a run
func (s *DataStoreSQLite) UpsertRun(ctx context.Context, run *model.Run) error {
	document, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, workflow_name, status, created_at, document)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			document = excluded.document`,
		run.ID, run.WorkflowName, string(run.Status),
		run.CreatedAt.UnixNano(), string(document))
	return err
}

// GetRunByID returns the run with the given ID
func (s *DataStoreSQLite) GetRunByID(ctx context.Context, id string) (*model.Run, error) {
	var document string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM runs WHERE id = ?", id).
		Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var run model.Run
	if err := json.Unmarshal([]byte(document), &run); err != nil {
		return nil, errors.Wrapf(err, "corrupted run %s", id)
	}
	return &run, nil
}

// GetRunsByWorkflowName returns the runs of a workflow, newest first
func (s *DataStoreSQLite) GetRunsByWorkflowName(
	ctx context.Context,
	name string,
	status model.RunStatus,
	limit int,
) ([]model.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM runs WHERE workflow_name = ?
		AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		name, string(status), string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		var (
			document string
			run      model.Run
		)
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(document), &run); err != nil {
			return nil, errors.Wrap(err, "corrupted run")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// InsertHistory stores the record of a dispatched request
func (s *DataStoreSQLite) InsertHistory(ctx context.Context, detail *model.HistoryDetail) error {
	entry, err := json.Marshal(detail.HistoryEntry)
	if err != nil {
		return err
	}
	document, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (id, run_id, created_at, entry, detail)
		VALUES (?, ?, ?, ?, ?)`,
		detail.ID, detail.RunID, detail.CreatedAt.UnixNano(),
		string(entry), string(document))
	if err != nil {
		return errors.Wrap(err, "Error inserting the history record")
	}
	return nil
}

// GetHistory returns the history entries, newest first
func (s *DataStoreSQLite) GetHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT entry FROM history ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var (
			document string
			entry    model.HistoryEntry
		)
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(document), &entry); err != nil {
			return nil, errors.Wrap(err, "corrupted history entry")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetHistoryByID returns the full record of a dispatched request
func (s *DataStoreSQLite) GetHistoryByID(
	ctx context.Context,
	id string,
) (*model.HistoryDetail, error) {
	var document string
	err := s.db.QueryRowContext(ctx, "SELECT detail FROM history WHERE id = ?", id).
		Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var detail model.HistoryDetail
	if err := json.Unmarshal([]byte(document), &detail); err != nil {
		return nil, errors.Wrapf(err, "corrupted history entry %s", id)
	}
	return &detail, nil
}

// DeleteHistory removes a history record
func (s *DataStoreSQLite) DeleteHistory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE id = ?", id)
	return err
}

// ClearHistory removes all the history records
func (s *DataStoreSQLite) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

// Close closes the database
func (s *DataStoreSQLite) Close() {
	_ = s.db.Close()
}
