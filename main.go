// Jobforge is a job-submission orchestration layer for HPC cluster
// workloads.
//
// Jobforge stores reusable application templates, renders them into
// concrete job scripts with injected sbatch directives, and tracks
// submissions run through a local container-backed executor.
package main

import (
	"github.com/opnlabs/jobforge/cmd/jobforge"
)

func main() {
	jobforge.Execute()
}
