package jobforge

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/opnlabs/jobforge/pkg/appconfig"
	"github.com/opnlabs/jobforge/pkg/bundle"
)

var (
	packageAppPath string
	packageOutput  string
)

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Package an application directory into a bundle archive",

	Run: func(cmd *cobra.Command, args []string) {
		appPath := filepath.Clean(packageAppPath)

		// Fail before writing anything if the config is unusable.
		configYAML, err := os.ReadFile(filepath.Join(appPath, appconfig.ConfigFileName))
		if err != nil {
			log.Fatal("unable to read application config", "err", err)
		}
		cfg, err := appconfig.Parse(configYAML)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := cfg.Jobbergate(); err != nil {
			log.Fatal(err)
		}

		archive, err := bundle.PackageDir(appPath)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(packageOutput, archive, 0644); err != nil {
			log.Fatal(err)
		}
		log.Info("packaged application", "path", appPath, "archive", packageOutput)
	},
}

func init() {
	packageCmd.Flags().StringVarP(&packageAppPath, "application-path", "p", ".", "Path to the application directory.")
	packageCmd.Flags().StringVarP(&packageOutput, "output", "o", "jobbergate.tar.gz", "Path for the bundle archive.")
}
