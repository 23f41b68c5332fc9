// Package runner executes rendered job scripts inside Docker containers as
// a local, single-node stand-in for a workload scheduler.
package runner

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/opnlabs/jobforge/pkg/jobscript"
	"github.com/opnlabs/jobforge/pkg/models"
	"github.com/opnlabs/jobforge/pkg/utils"
)

const (
	BUILD_DIR    = ".jobforge"
	WORKING_DIR  = "/job"
	DefaultImage = "docker.io/alpine"

	// Pseudo slurm job id range, matching what a fake sbatch hands out.
	minSlurmJobID = 1
	maxSlurmJobID = 1_000_000
)

type RunnerOptions struct {
	ShowImagePull bool
	Stdout        io.Writer
	Stderr        io.Writer
}

// DockerRunner runs one job script body in a container. The body files are
// materialized into a per-run work directory bind-mounted at WORKING_DIR
// and the main script is executed with /bin/sh.
type DockerRunner struct {
	name             string
	image            string
	env              []string
	files            map[string]string
	containerID      string
	workingDirectory string
	options          RunnerOptions
}

func NewDockerRunner(name string, options RunnerOptions) (*DockerRunner, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("unable to determine working directory for job %s: %v", name, err)
	}
	runName := slug.Make(name + uuid.NewString())

	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}

	return &DockerRunner{
		name:             runName,
		image:            DefaultImage,
		workingDirectory: wd,
		options:          options,
	}, nil
}

func (d *DockerRunner) WithImage(image string) *DockerRunner {
	if image != "" {
		d.image = image
	}
	return d
}

// WithBody decodes the JSON-encoded job script body into the file set to
// materialize.
func (d *DockerRunner) WithBody(body string) (*DockerRunner, error) {
	files, err := jobscript.DecodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("unable to decode job script body for %s: %v", d.name, err)
	}
	d.files = files
	return d, nil
}

func (d *DockerRunner) WithEnv(env []models.Variable) *DockerRunner {
	variables := make([]string, 0)
	for _, v := range env {
		for k, value := range v {
			variables = append(variables, fmt.Sprintf("%s=%v", k, value))
		}
	}
	d.env = variables
	return d
}

// Run executes the main script and blocks until the container exits. It
// returns the pseudo slurm job id assigned to the run.
func (d *DockerRunner) Run(ctx context.Context) (int, error) {
	if _, ok := d.files[jobscript.MainScriptKey]; !ok {
		return 0, fmt.Errorf("job script body for %s has no %s", d.name, jobscript.MainScriptKey)
	}

	jobDir, err := d.materialize()
	if err != nil {
		return 0, err
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return 0, fmt.Errorf("unable to create docker client to run job %s: %v", d.name, err)
	}
	defer cli.Close()

	reader, err := cli.ImagePull(ctx, d.image, types.ImagePullOptions{})
	if err != nil {
		return 0, fmt.Errorf("unable to pull image to run job %s: %v", d.name, err)
	}
	defer reader.Close()
	if d.options.ShowImagePull {
		if _, err := io.Copy(d.options.Stdout, reader); err != nil {
			return 0, fmt.Errorf("unable to read image pull logs for %s: %v", d.name, err)
		}
	} else if _, err := io.Copy(io.Discard, reader); err != nil {
		return 0, fmt.Errorf("unable to drain image pull logs for %s: %v", d.name, err)
	}

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:      d.image,
		Env:        d.env,
		Cmd:        []string{"/bin/sh", jobscript.MainScriptKey},
		WorkingDir: WORKING_DIR,
	}, &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: jobDir,
				Target: WORKING_DIR,
			},
		},
	}, nil, nil, d.name)
	if err != nil {
		return 0, fmt.Errorf("unable to create container for job %s: %v", d.name, err)
	}
	d.containerID = resp.ID
	defer cli.ContainerRemove(ctx, resp.ID, types.ContainerRemoveOptions{})

	if err := cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return 0, fmt.Errorf("unable to start container for job %s: %v", d.name, err)
	}
	slurmJobID := minSlurmJobID + rand.Intn(maxSlurmJobID-minSlurmJobID)

	logs, err := cli.ContainerLogs(ctx, resp.ID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return 0, fmt.Errorf("unable to attach logs for job %s: %v", d.name, err)
	}
	defer logs.Close()

	if _, err := io.Copy(d.options.Stdout, logs); err != nil {
		return 0, fmt.Errorf("unable to read container logs from job %s: %v", d.name, err)
	}

	statusCh, errCh := cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, fmt.Errorf("error waiting for job %s to stop: %v", d.name, err)
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return 0, fmt.Errorf("job %s exited with status %d", d.name, status.StatusCode)
		}
	case <-ctx.Done():
		return 0, fmt.Errorf("context canceled, stopping job %s", d.name)
	}

	return slurmJobID, nil
}

// materialize writes the body files into the per-run work directory and
// returns its absolute path.
func (d *DockerRunner) materialize() (string, error) {
	jobDir := filepath.Join(d.workingDirectory, BUILD_DIR, fmt.Sprintf("job-%s", d.name))
	for name, content := range d.files {
		target := filepath.Join(jobDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", fmt.Errorf("unable to create work directory for job %s: %v", d.name, err)
		}
		mode := os.FileMode(0644)
		if name == jobscript.MainScriptKey {
			mode = 0755
		}
		if err := os.WriteFile(target, []byte(content), mode); err != nil {
			return "", fmt.Errorf("unable to write %s for job %s: %v", name, d.name, err)
		}
	}
	return jobDir, nil
}

// DockerSubmitter adapts DockerRunner to the orchestrator's submission
// interface, wiring a color-prefixed log stream per job.
type DockerSubmitter struct {
	Image         string
	ShowImagePull bool
}

func (s DockerSubmitter) Submit(ctx context.Context, name, body string, env []models.Variable) (int, error) {
	r, err := NewDockerRunner(name, RunnerOptions{
		ShowImagePull: s.ShowImagePull,
		Stdout:        utils.NewColorLogger(name, os.Stdout, true),
		Stderr:        utils.NewColorLogger(name, os.Stderr, false),
	})
	if err != nil {
		return 0, err
	}
	if _, err := r.WithBody(body); err != nil {
		return 0, err
	}
	return r.WithImage(s.Image).WithEnv(env).Run(ctx)
}
