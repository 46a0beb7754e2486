package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// The unique indexes back the natural keys used by the find-or-create
// operations; the locking reads in the repository rely on them for
// deterministic conflict detection under concurrent uploads.
var steps = []migrationStep{
	{
		Name: "create_table_patients",
		SQL: `CREATE TABLE IF NOT EXISTS patients (
  id_patient   BIGSERIAL   PRIMARY KEY,
  patient_name TEXT        NOT NULL,
  created_date TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_patients_name",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_patients_name ON patients (patient_name);`,
	},
	{
		Name: "create_table_studies",
		SQL: `CREATE TABLE IF NOT EXISTS studies (
  id_study     BIGSERIAL   PRIMARY KEY,
  id_patient   BIGINT      NOT NULL REFERENCES patients (id_patient),
  study_name   TEXT        NOT NULL DEFAULT '',
  study_date   DATE        NOT NULL,
  created_date TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_studies_patient_date",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_studies_patient_date ON studies (id_patient, study_date);`,
	},
	{
		Name: "create_table_modalities",
		SQL: `CREATE TABLE IF NOT EXISTS modalities (
  id_modality BIGSERIAL PRIMARY KEY,
  name        TEXT      NOT NULL
);`,
	},
	{
		Name: "create_unique_modalities_name",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_modalities_name ON modalities (name);`,
	},
	{
		Name: "create_table_series",
		SQL: `CREATE TABLE IF NOT EXISTS series (
  id_series    BIGSERIAL   PRIMARY KEY,
  id_patient   BIGINT      NOT NULL REFERENCES patients (id_patient),
  id_study     BIGINT      NOT NULL REFERENCES studies (id_study),
  id_modality  BIGINT      NOT NULL REFERENCES modalities (id_modality),
  series_name  TEXT        NOT NULL DEFAULT '',
  created_date TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_series_study_name_modality",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_series_study_name_modality ON series (id_study, series_name, id_modality);`,
	},
	{
		Name: "create_table_files",
		SQL: `CREATE TABLE IF NOT EXISTS files (
  id_file      BIGSERIAL   PRIMARY KEY,
  id_patient   BIGINT      NOT NULL REFERENCES patients (id_patient),
  id_study     BIGINT      NOT NULL REFERENCES studies (id_study),
  id_series    BIGINT      NOT NULL REFERENCES series (id_series),
  file_path    TEXT        NOT NULL UNIQUE,
  created_date TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_files_created_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_files_created_date ON files (created_date DESC);`,
	},
	{
		Name: "create_index_files_series",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_files_series ON files (id_series);`,
	},
}

// EnsureMigrated checks if the 'files' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.files') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
