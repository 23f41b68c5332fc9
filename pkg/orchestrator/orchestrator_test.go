package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opnlabs/jobforge/pkg/appconfig"
	"github.com/opnlabs/jobforge/pkg/bundle"
	"github.com/opnlabs/jobforge/pkg/bundlestore"
	"github.com/opnlabs/jobforge/pkg/jobscript"
	"github.com/opnlabs/jobforge/pkg/models"
)

const testConfig = `jobbergate_config:
  default_template: application.sh
job:
  name: demo
  partition: general
`

// fakeSubmitter records the last submission and returns a fixed job id.
type fakeSubmitter struct {
	jobID   int
	err     error
	gotName string
	gotBody string
	gotEnv  []models.Variable
}

func (f *fakeSubmitter) Submit(ctx context.Context, name, body string, env []models.Variable) (int, error) {
	f.gotName = name
	f.gotBody = body
	f.gotEnv = env
	return f.jobID, f.err
}

func testArchive(t *testing.T, members map[string]string) []byte {
	t.Helper()

	w := bundle.NewWriter()
	for name, content := range members {
		if err := w.Add(name, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return w.Bytes()
}

func newTestOrchestrator(t *testing.T, submitter Submitter) (*Orchestrator, bundlestore.Store) {
	t.Helper()

	bundles, err := bundlestore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(bundles, submitter), bundles
}

func createTestApplication(t *testing.T, o *Orchestrator) models.Application {
	t.Helper()

	archive := testArchive(t, map[string]string{
		"templates/application.sh": "#!/bin/bash\n#SBATCH --partition={{ data.partition }}\necho {{ data.name }}",
	})
	app, err := o.CreateApplication(models.ApplicationCreateRequest{
		Name:       "test-application",
		ConfigYAML: testConfig,
	}, archive)
	if err != nil {
		t.Fatal(err)
	}
	return app
}

func TestCreateAndGetApplication(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	app := createTestApplication(t, o)
	if app.ID != 1 {
		t.Errorf("expected id 1, got %d", app.ID)
	}

	got, err := o.GetApplication(app.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "test-application" {
		t.Errorf("expected test-application, got %s", got.Name)
	}
}

func TestCreateApplicationRejectsMissingName(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	_, err := o.CreateApplication(models.ApplicationCreateRequest{
		ConfigYAML: testConfig,
	}, testArchive(t, map[string]string{"templates/application.sh": "echo"}))
	if err == nil {
		t.Error("expected a validation error for a missing name")
	}
}

func TestCreateApplicationRejectsConfigWithoutTemplate(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	_, err := o.CreateApplication(models.ApplicationCreateRequest{
		Name:       "broken",
		ConfigYAML: "job:\n  name: demo\n",
	}, testArchive(t, map[string]string{"templates/application.sh": "echo"}))
	if err == nil {
		t.Error("expected an error for a configuration without jobbergate_config")
	}
}

func TestDeleteApplicationRemovesBundle(t *testing.T) {
	o, bundles := newTestOrchestrator(t, nil)

	app := createTestApplication(t, o)
	if err := o.DeleteApplication(app.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := o.GetApplication(app.ID); err == nil {
		t.Error("expected the application row to be gone")
	}
	if _, err := bundles.Get(app.ID); !errors.Is(err, bundlestore.ErrBundleNotFound) {
		t.Errorf("expected the bundle archive to be gone, got %v", err)
	}
}

func TestCreateJobScriptUsesConfigDefaults(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	app := createTestApplication(t, o)

	js, err := o.CreateJobScript(models.JobScriptCreateRequest{
		Name:          "defaults",
		ApplicationID: app.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	files, err := jobscript.DecodeBody(js.DataAsString)
	if err != nil {
		t.Fatal(err)
	}
	want := "#!/bin/bash\n#SBATCH --partition=general\necho demo"
	if files[jobscript.MainScriptKey] != want {
		t.Errorf("expected %q, got %q", want, files[jobscript.MainScriptKey])
	}
}

func TestCreateJobScriptParamDictWins(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	app := createTestApplication(t, o)

	overlay, err := appconfig.Parse([]byte("job:\n  name: override\n  partition: debug\n"))
	if err != nil {
		t.Fatal(err)
	}
	js, err := o.CreateJobScript(models.JobScriptCreateRequest{
		Name:          "overridden",
		ApplicationID: app.ID,
		ParamDict:     overlay,
		SbatchParams:  []string{"--time=10"},
	})
	if err != nil {
		t.Fatal(err)
	}

	files, err := jobscript.DecodeBody(js.DataAsString)
	if err != nil {
		t.Fatal(err)
	}
	want := "#!/bin/bash\n#SBATCH --partition=debug\n#SBATCH --time=10\necho override"
	if files[jobscript.MainScriptKey] != want {
		t.Errorf("expected %q, got %q", want, files[jobscript.MainScriptKey])
	}
}

func TestCreateJobScriptMissingApplication(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	_, err := o.CreateJobScript(models.JobScriptCreateRequest{
		Name:          "orphan",
		ApplicationID: 99,
	})
	if err == nil {
		t.Error("expected an error for a missing application")
	}
}

func TestCreateJobScriptMissingBundle(t *testing.T) {
	o, bundles := newTestOrchestrator(t, nil)
	app := createTestApplication(t, o)

	if err := bundles.Delete(app.ID); err != nil {
		t.Fatal(err)
	}
	_, err := o.CreateJobScript(models.JobScriptCreateRequest{
		Name:          "no-bundle",
		ApplicationID: app.ID,
	})
	if !errors.Is(err, bundlestore.ErrBundleNotFound) {
		t.Errorf("expected ErrBundleNotFound, got %v", err)
	}
}

func TestSubmitJobScript(t *testing.T) {
	submitter := &fakeSubmitter{jobID: 4242}
	o, _ := newTestOrchestrator(t, submitter)
	app := createTestApplication(t, o)

	js, err := o.CreateJobScript(models.JobScriptCreateRequest{
		Name:          "submitted",
		ApplicationID: app.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	env := []models.Variable{{"CLUSTER": "local"}}
	sub, err := o.SubmitJobScript(context.Background(), models.JobSubmissionCreateRequest{
		JobScriptID: js.ID,
		Variables:   env,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sub.Status != models.SubmissionCompleted {
		t.Errorf("expected status %s, got %s", models.SubmissionCompleted, sub.Status)
	}
	if sub.SlurmJobID != 4242 {
		t.Errorf("expected slurm job id 4242, got %d", sub.SlurmJobID)
	}
	if submitter.gotName != "submitted" {
		t.Errorf("submitter received name %s", submitter.gotName)
	}
	if submitter.gotBody != js.DataAsString {
		t.Error("submitter did not receive the rendered body")
	}
	if len(submitter.gotEnv) != 1 {
		t.Errorf("submitter received env %v", submitter.gotEnv)
	}

	got, err := o.GetJobSubmission(sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SubmissionCompleted {
		t.Errorf("stored submission has status %s", got.Status)
	}
}

func TestSubmitJobScriptFailureKeepsLastStatus(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("container exited with status 1")}
	o, _ := newTestOrchestrator(t, submitter)
	app := createTestApplication(t, o)

	js, err := o.CreateJobScript(models.JobScriptCreateRequest{
		Name:          "failing",
		ApplicationID: app.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = o.SubmitJobScript(context.Background(), models.JobSubmissionCreateRequest{
		JobScriptID: js.ID,
	})
	if err == nil || !strings.Contains(err.Error(), "container exited") {
		t.Fatalf("expected the submitter error, got %v", err)
	}

	got, err := o.GetJobSubmission(1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SubmissionSubmitted {
		t.Errorf("expected the submission to stay %s, got %s", models.SubmissionSubmitted, got.Status)
	}
}

func TestSubmitJobScriptWithoutSubmitter(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	app := createTestApplication(t, o)

	js, err := o.CreateJobScript(models.JobScriptCreateRequest{
		Name:          "render-only",
		ApplicationID: app.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = o.SubmitJobScript(context.Background(), models.JobSubmissionCreateRequest{
		JobScriptID: js.ID,
	})
	if err == nil {
		t.Error("expected an error when no submitter is configured")
	}
}
