package jobforge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/opnlabs/jobforge/pkg/appconfig"
	"github.com/opnlabs/jobforge/pkg/bundle"
	"github.com/opnlabs/jobforge/pkg/bundlestore"
	"github.com/opnlabs/jobforge/pkg/jobscript"
	"github.com/opnlabs/jobforge/pkg/models"
	"github.com/opnlabs/jobforge/pkg/orchestrator"
	"github.com/opnlabs/jobforge/pkg/runner"
)

var (
	forgeFilePath        string
	outputDir            string
	imageOverride        string
	forceSubmit          bool
	verbose              bool
	envVars              []string
	environmentVariables []models.Variable = make([]models.Variable, 0)
	validate             *validator.Validate = validator.New(validator.WithRequiredStructEnabled())
)

var rootCmd = &cobra.Command{
	Use:   "jobforge",
	Short: "Jobforge renders and submits HPC job scripts",
	Long: `Jobforge renders reusable application templates into ready-to-submit job
scripts. A manifest ( default forge.yml ) declares an application bundle and the
job scripts to render from it; sbatch directives are injected into each rendered
script, and scripts can be submitted to a local container-backed executor.`,

	Run: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}

		if len(envVars) > 0 {
			for _, v := range envVars {
				variables := strings.SplitN(v, "=", 2)
				if len(variables) != 2 {
					log.Fatal("variables should be defined as KEY=VALUE", "got", v)
				}

				m := make(models.Variable)
				m[variables[0]] = variables[1]
				environmentVariables = append(environmentVariables, m)
			}
		}

		run()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")

	rootCmd.Flags().StringVarP(&forgeFilePath, "forge-file-path", "f", "forge.yml", "Path to the manifest file.")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", filepath.Join(runner.BUILD_DIR, "rendered"), "Directory for rendered job script files.")
	rootCmd.Flags().StringVarP(&imageOverride, "image", "i", "", "Container image for submissions, overriding the manifest.")
	rootCmd.Flags().BoolVarP(&forceSubmit, "submit", "s", false, "Submit every job script even if the manifest says otherwise.")

	rootCmd.Flags().StringArrayVarP(&envVars, "environment-variable", "e", make([]string, 0), "Environment variables. KEY=VALUE")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(versionCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run() {
	ctx := context.Background()

	manifest, err := readManifest(forgeFilePath)
	if err != nil {
		log.Fatal(err)
	}

	configYAML, err := os.ReadFile(filepath.Join(filepath.Clean(manifest.Application.Path), appconfig.ConfigFileName))
	if err != nil {
		log.Fatal("unable to read application config", "err", err)
	}
	archive, err := bundle.PackageDir(filepath.Clean(manifest.Application.Path))
	if err != nil {
		log.Fatal(err)
	}

	bundles, err := bundlestore.NewFileStore(filepath.Join(runner.BUILD_DIR, "bundles"))
	if err != nil {
		log.Fatal(err)
	}

	image := manifest.Image
	if imageOverride != "" {
		image = imageOverride
	}
	orch := orchestrator.New(bundles, runner.DockerSubmitter{Image: image, ShowImagePull: verbose})

	app, err := orch.CreateApplication(models.ApplicationCreateRequest{
		Name:        manifest.Application.Name,
		Owner:       manifest.Application.Owner,
		Description: manifest.Application.Description,
		ConfigYAML:  string(configYAML),
	}, archive)
	if err != nil {
		log.Fatal(err)
	}

	submit := manifest.Submit || forceSubmit
	variables := append(manifest.Variables, environmentVariables...)

	var eg errgroup.Group
	for _, spec := range manifest.JobScripts {
		jobCtx, cancel := context.WithTimeout(ctx, time.Hour)
		defer cancel()

		func(spec models.ManifestJobScript) {
			eg.Go(func() error {
				js, err := orch.CreateJobScript(models.JobScriptCreateRequest{
					Name:          spec.Name,
					Owner:         manifest.Application.Owner,
					ApplicationID: app.ID,
					ParamDict:     spec.ParamDict,
					SbatchParams:  spec.SbatchParams,
				})
				if err != nil {
					return err
				}
				if err := writeRendered(js, outputDir); err != nil {
					return err
				}
				if !submit {
					return nil
				}
				_, err = orch.SubmitJobScript(jobCtx, models.JobSubmissionCreateRequest{
					JobScriptID: js.ID,
					Owner:       manifest.Application.Owner,
					Variables:   variables,
				})
				return err
			})
		}(spec)
	}
	if err := eg.Wait(); err != nil {
		log.Fatal(err)
	}
}

func readManifest(path string) (models.ForgeFile, error) {
	var manifest models.ForgeFile

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return manifest, err
	}
	if err := yaml.Unmarshal(contents, &manifest); err != nil {
		return manifest, err
	}
	if err := validate.Struct(manifest); err != nil {
		return manifest, err
	}
	return manifest, nil
}

// writeRendered materializes a job script's body files under
// dir/<script name>/ so rendered output survives the run.
func writeRendered(js models.JobScript, dir string) error {
	files, err := jobscript.DecodeBody(js.DataAsString)
	if err != nil {
		return err
	}
	for name, content := range files {
		target := filepath.Join(dir, js.Name, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(content), 0644); err != nil {
			return err
		}
	}
	log.Debug("wrote rendered job script", "name", js.Name, "dir", filepath.Join(dir, js.Name))
	return nil
}
