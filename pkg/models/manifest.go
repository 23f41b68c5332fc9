package models

import "github.com/opnlabs/jobforge/pkg/appconfig"

// ForgeFile is the manifest consumed by jobforge run: one application plus
// the job scripts to render from it.
type ForgeFile struct {
	Application ManifestApplication `yaml:"application" validate:"required"`
	JobScripts  []ManifestJobScript `yaml:"job_scripts" validate:"required,dive"`
	Submit      bool                `yaml:"submit"`
	Image       string              `yaml:"image"`
	Variables   []Variable          `yaml:"variables"`
}

// ManifestApplication declares the application to register: a directory
// holding the configuration file and a templates/ subdirectory.
type ManifestApplication struct {
	Name        string `yaml:"name" validate:"required"`
	Path        string `yaml:"path" validate:"required"`
	Owner       string `yaml:"owner" validate:"omitempty,email"`
	Description string `yaml:"description"`
}

// ManifestJobScript declares one job script to render and optionally
// submit.
type ManifestJobScript struct {
	Name         string             `yaml:"name" validate:"required"`
	ParamDict    *appconfig.Mapping `yaml:"param_dict"`
	SbatchParams []string           `yaml:"sbatch_params"`
}
