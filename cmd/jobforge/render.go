package jobforge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opnlabs/jobforge/pkg/appconfig"
	"github.com/opnlabs/jobforge/pkg/bundle"
	"github.com/opnlabs/jobforge/pkg/jobscript"
)

var (
	renderAppPath      string
	renderParamsPath   string
	renderSbatchParams []string
	renderOutputDir    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an application directory into a job script",
	Long: `Render reads an application directory, merges an optional parameter overlay
on top of the configuration defaults, renders the templates, and injects sbatch
directives. Without an output directory the main script prints to stdout.
Nothing is stored and nothing is submitted.`,

	Run: func(cmd *cobra.Command, args []string) {
		body, err := renderJobScript(renderAppPath, renderParamsPath, renderSbatchParams)
		if err != nil {
			log.Fatal(err)
		}

		files, err := jobscript.DecodeBody(body)
		if err != nil {
			log.Fatal(err)
		}

		if renderOutputDir == "" {
			fmt.Print(files[jobscript.MainScriptKey])
			return
		}
		for name, content := range files {
			target := filepath.Join(renderOutputDir, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				log.Fatal(err)
			}
			if err := os.WriteFile(target, []byte(content), 0644); err != nil {
				log.Fatal(err)
			}
		}
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderAppPath, "application-path", "p", ".", "Path to the application directory.")
	renderCmd.Flags().StringVarP(&renderParamsPath, "param-file", "P", "", "Path to a YAML parameter overlay.")
	renderCmd.Flags().StringArrayVarP(&renderSbatchParams, "sbatch-param", "b", nil, "Sbatch directive to inject. Repeatable.")
	renderCmd.Flags().StringVarP(&renderOutputDir, "output-dir", "o", "", "Directory for the rendered files instead of stdout.")
}

// renderJobScript runs the render kernel end to end on local files: package
// the directory, merge the overlay, assemble, inject.
func renderJobScript(appPath, paramsPath string, sbatchParams []string) (string, error) {
	appPath = filepath.Clean(appPath)

	configYAML, err := os.ReadFile(filepath.Join(appPath, appconfig.ConfigFileName))
	if err != nil {
		return "", fmt.Errorf("unable to read application config: %v", err)
	}
	merged, err := appconfig.Parse(configYAML)
	if err != nil {
		return "", err
	}

	if paramsPath != "" {
		overlayYAML, err := os.ReadFile(filepath.Clean(paramsPath))
		if err != nil {
			return "", fmt.Errorf("unable to read parameter overlay: %v", err)
		}
		var overlay appconfig.Mapping
		if err := yaml.Unmarshal(overlayYAML, &overlay); err != nil {
			return "", err
		}
		merged.Merge(&overlay)
	}

	archive, err := bundle.PackageDir(appPath)
	if err != nil {
		return "", err
	}

	body, _, err := jobscript.Assemble(bundle.New(archive), merged)
	if err != nil {
		return "", err
	}
	return jobscript.InjectSbatchParams(body, sbatchParams), nil
}
