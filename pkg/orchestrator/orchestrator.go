// Package orchestrator wires the stores, the render kernel, and the
// submission runner into the application / job script / submission flow.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/opnlabs/jobforge/pkg/appconfig"
	"github.com/opnlabs/jobforge/pkg/bundle"
	"github.com/opnlabs/jobforge/pkg/bundlestore"
	"github.com/opnlabs/jobforge/pkg/jobscript"
	"github.com/opnlabs/jobforge/pkg/models"
	"github.com/opnlabs/jobforge/pkg/store"
)

// Submitter executes a rendered job script body and returns the scheduler
// job id assigned to the run.
type Submitter interface {
	Submit(ctx context.Context, name, body string, env []models.Variable) (int, error)
}

// Orchestrator holds the rows and bundle archives and exposes the
// end-to-end operations. Safe for concurrent use; each operation works on
// its own copies.
type Orchestrator struct {
	apps      store.Store
	scripts   store.Store
	subs      store.Store
	bundles   bundlestore.Store
	submitter Submitter
	validate  *validator.Validate

	mu           sync.Mutex
	nextAppID    int
	nextScriptID int
	nextSubID    int
}

// New returns an orchestrator over the given bundle store. The submitter
// may be nil when submissions are not needed (render-only flows).
func New(bundles bundlestore.Store, submitter Submitter) *Orchestrator {
	return &Orchestrator{
		apps:      store.NewMemStore(),
		scripts:   store.NewMemStore(),
		subs:      store.NewMemStore(),
		bundles:   bundles,
		submitter: submitter,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func applicationKey(id int) string   { return fmt.Sprintf("application:%d", id) }
func jobScriptKey(id int) string     { return fmt.Sprintf("job_script:%d", id) }
func jobSubmissionKey(id int) string { return fmt.Sprintf("job_submission:%d", id) }

// CreateApplication validates the request and configuration, stores the
// row, and persists the bundle archive. The configuration must carry a
// jobbergate_config section with a default_template.
func (o *Orchestrator) CreateApplication(req models.ApplicationCreateRequest, archive []byte) (models.Application, error) {
	var app models.Application
	if err := o.validate.Struct(req); err != nil {
		return app, fmt.Errorf("orchestrator: invalid application request: %v", err)
	}

	cfg, err := appconfig.Parse([]byte(req.ConfigYAML))
	if err != nil {
		return app, err
	}
	if _, err := cfg.Jobbergate(); err != nil {
		return app, err
	}

	o.mu.Lock()
	o.nextAppID++
	id := o.nextAppID
	o.mu.Unlock()

	now := time.Now()
	app = models.Application{
		ID:          id,
		Name:        req.Name,
		Owner:       req.Owner,
		Description: req.Description,
		ConfigYAML:  req.ConfigYAML,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.apps.Set(applicationKey(id), app); err != nil {
		return models.Application{}, fmt.Errorf("orchestrator: unable to store application %d: %w", id, err)
	}
	if err := o.bundles.Put(id, archive); err != nil {
		// Keep rows and archives consistent on failure.
		o.apps.Delete(applicationKey(id))
		return models.Application{}, err
	}

	log.Info("created application", "id", id, "name", app.Name)
	return app, nil
}

// GetApplication returns a stored application row.
func (o *Orchestrator) GetApplication(id int) (models.Application, error) {
	v, err := o.apps.Get(applicationKey(id))
	if err != nil {
		return models.Application{}, fmt.Errorf("orchestrator: application with id=%d not found: %w", id, err)
	}
	return v.(models.Application), nil
}

// DeleteApplication removes the row and its bundle archive together.
func (o *Orchestrator) DeleteApplication(id int) error {
	if err := o.apps.Delete(applicationKey(id)); err != nil {
		return fmt.Errorf("orchestrator: application with id=%d not found: %w", id, err)
	}
	return o.bundles.Delete(id)
}

// CreateJobScript renders a new job script from a stored application. The
// configuration defaults are the baseline, the request's param dict merges
// on top, and sbatch params inject into the rendered body. Nothing is
// persisted when any step fails.
func (o *Orchestrator) CreateJobScript(req models.JobScriptCreateRequest) (models.JobScript, error) {
	var js models.JobScript
	if err := o.validate.Struct(req); err != nil {
		return js, fmt.Errorf("orchestrator: invalid job script request: %v", err)
	}

	app, err := o.GetApplication(req.ApplicationID)
	if err != nil {
		return js, err
	}

	archive, err := o.bundles.Get(app.ID)
	if err != nil {
		return js, err
	}

	merged, err := appconfig.Parse([]byte(app.ConfigYAML))
	if err != nil {
		return js, err
	}
	merged.Merge(req.ParamDict)

	log.Debug("rendering job script", "name", req.Name, "application", app.ID)
	body, _, err := jobscript.Assemble(bundle.New(archive), merged)
	if err != nil {
		return js, err
	}
	body = jobscript.InjectSbatchParams(body, req.SbatchParams)

	o.mu.Lock()
	o.nextScriptID++
	id := o.nextScriptID
	o.mu.Unlock()

	js = models.JobScript{
		ID:            id,
		Name:          req.Name,
		Owner:         req.Owner,
		ApplicationID: app.ID,
		DataAsString:  body,
		SbatchParams:  req.SbatchParams,
		CreatedAt:     time.Now(),
	}
	if err := o.scripts.Set(jobScriptKey(id), js); err != nil {
		return models.JobScript{}, fmt.Errorf("orchestrator: unable to store job script %d: %w", id, err)
	}

	log.Info("created job script", "id", id, "name", js.Name, "application", app.ID)
	return js, nil
}

// GetJobScript returns a stored job script row.
func (o *Orchestrator) GetJobScript(id int) (models.JobScript, error) {
	v, err := o.scripts.Get(jobScriptKey(id))
	if err != nil {
		return models.JobScript{}, fmt.Errorf("orchestrator: job script with id=%d not found: %w", id, err)
	}
	return v.(models.JobScript), nil
}

// SubmitJobScript records a submission and executes it through the
// configured submitter, advancing the status CREATED -> SUBMITTED ->
// COMPLETED. The submission row keeps its last status when the run fails.
func (o *Orchestrator) SubmitJobScript(ctx context.Context, req models.JobSubmissionCreateRequest) (models.JobSubmission, error) {
	var sub models.JobSubmission
	if err := o.validate.Struct(req); err != nil {
		return sub, fmt.Errorf("orchestrator: invalid submission request: %v", err)
	}
	if o.submitter == nil {
		return sub, fmt.Errorf("orchestrator: no submitter configured")
	}

	js, err := o.GetJobScript(req.JobScriptID)
	if err != nil {
		return sub, err
	}

	o.mu.Lock()
	o.nextSubID++
	id := o.nextSubID
	o.mu.Unlock()

	now := time.Now()
	sub = models.JobSubmission{
		ID:          id,
		JobScriptID: js.ID,
		Owner:       req.Owner,
		Status:      models.SubmissionCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.subs.Set(jobSubmissionKey(id), sub); err != nil {
		return models.JobSubmission{}, fmt.Errorf("orchestrator: unable to store submission %d: %w", id, err)
	}

	sub.Status = models.SubmissionSubmitted
	sub.UpdatedAt = time.Now()
	if err := o.subs.Update(jobSubmissionKey(id), sub); err != nil {
		return models.JobSubmission{}, err
	}

	log.Info("submitting job script", "submission", id, "job_script", js.ID, "name", js.Name)
	slurmJobID, err := o.submitter.Submit(ctx, js.Name, js.DataAsString, req.Variables)
	if err != nil {
		return sub, fmt.Errorf("orchestrator: submission %d failed: %w", id, err)
	}

	sub.SlurmJobID = slurmJobID
	sub.Status = models.SubmissionCompleted
	sub.UpdatedAt = time.Now()
	if err := o.subs.Update(jobSubmissionKey(id), sub); err != nil {
		return models.JobSubmission{}, err
	}

	log.Info("job script completed", "submission", id, "slurm_job_id", slurmJobID)
	return sub, nil
}

// GetJobSubmission returns a stored submission row.
func (o *Orchestrator) GetJobSubmission(id int) (models.JobSubmission, error) {
	v, err := o.subs.Get(jobSubmissionKey(id))
	if err != nil {
		return models.JobSubmission{}, fmt.Errorf("orchestrator: job submission with id=%d not found: %w", id, err)
	}
	return v.(models.JobSubmission), nil
}
