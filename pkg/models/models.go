// Package models defines the rows and request payloads of the
// orchestration layer.
package models

import (
	"time"

	"github.com/opnlabs/jobforge/pkg/appconfig"
)

// Variable is a single KEY=VALUE pair passed to the submission
// environment.
type Variable map[string]any

// JobSubmissionStatus tracks a submission through its lifecycle.
type JobSubmissionStatus string

const (
	SubmissionCreated   JobSubmissionStatus = "CREATED"
	SubmissionSubmitted JobSubmissionStatus = "SUBMITTED"
	SubmissionCompleted JobSubmissionStatus = "COMPLETED"
)

// Application is a stored, reusable job template: a script bundle plus its
// YAML configuration.
type Application struct {
	ID          int       `yaml:"id"`
	Name        string    `yaml:"name"`
	Owner       string    `yaml:"owner"`
	Description string    `yaml:"description"`
	ConfigYAML  string    `yaml:"config"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

// ApplicationCreateRequest carries the fields needed to register an
// application.
type ApplicationCreateRequest struct {
	Name        string `yaml:"name" validate:"required"`
	Owner       string `yaml:"owner" validate:"omitempty,email"`
	Description string `yaml:"description"`
	ConfigYAML  string `yaml:"config" validate:"required"`
}

// JobScript is the rendered, ready-to-submit script produced from an
// application plus parameters. DataAsString is the JSON-encoded mapping of
// output filename to rendered text.
type JobScript struct {
	ID            int       `yaml:"id"`
	Name          string    `yaml:"name"`
	Owner         string    `yaml:"owner"`
	ApplicationID int       `yaml:"application_id"`
	DataAsString  string    `yaml:"data_as_string"`
	SbatchParams  []string  `yaml:"sbatch_params"`
	CreatedAt     time.Time `yaml:"created_at"`
}

// JobScriptCreateRequest renders a new job script from an application.
// ParamDict overrides the configuration defaults; SbatchParams are
// injected verbatim into the rendered script.
type JobScriptCreateRequest struct {
	Name          string             `yaml:"name" validate:"required"`
	Owner         string             `yaml:"owner" validate:"omitempty,email"`
	ApplicationID int                `yaml:"application_id" validate:"required"`
	ParamDict     *appconfig.Mapping `yaml:"param_dict"`
	SbatchParams  []string           `yaml:"sbatch_params"`
}

// JobSubmission records one execution of a job script.
type JobSubmission struct {
	ID          int                 `yaml:"id"`
	JobScriptID int                 `yaml:"job_script_id"`
	Owner       string              `yaml:"owner"`
	Status      JobSubmissionStatus `yaml:"status"`
	SlurmJobID  int                 `yaml:"slurm_job_id"`
	CreatedAt   time.Time           `yaml:"created_at"`
	UpdatedAt   time.Time           `yaml:"updated_at"`
}

// JobSubmissionCreateRequest submits an existing job script.
type JobSubmissionCreateRequest struct {
	JobScriptID int        `yaml:"job_script_id" validate:"required"`
	Owner       string     `yaml:"owner" validate:"omitempty,email"`
	Variables   []Variable `yaml:"variables"`
}
