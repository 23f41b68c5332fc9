// Renderbatch renders every job script in a manifest, writing the
// rendered files under rendered/<name>. It never talks to Docker: no
// submissions, no persistence, just the render kernel.
package main

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/opnlabs/jobforge/pkg/appconfig"
	"github.com/opnlabs/jobforge/pkg/bundle"
	"github.com/opnlabs/jobforge/pkg/jobscript"
	"github.com/opnlabs/jobforge/pkg/models"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatal("specify the manifest file")
	}

	contents, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	var manifest models.ForgeFile
	err = yaml.Unmarshal(contents, &manifest)
	if err != nil {
		log.Fatal(err)
	}

	appPath := filepath.Clean(manifest.Application.Path)
	configYAML, err := os.ReadFile(filepath.Join(appPath, appconfig.ConfigFileName))
	if err != nil {
		log.Fatal(err)
	}
	archive, err := bundle.PackageDir(appPath)
	if err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, spec := range manifest.JobScripts {
		wg.Add(1)
		go func(spec models.ManifestJobScript) {
			defer wg.Done()

			merged, err := appconfig.Parse(configYAML)
			if err != nil {
				log.Println(spec.Name, err)
				return
			}
			merged.Merge(spec.ParamDict)

			body, _, err := jobscript.Assemble(bundle.New(archive), merged)
			if err != nil {
				log.Println(spec.Name, err)
				return
			}
			body = jobscript.InjectSbatchParams(body, spec.SbatchParams)

			files, err := jobscript.DecodeBody(body)
			if err != nil {
				log.Println(spec.Name, err)
				return
			}
			for name, content := range files {
				target := filepath.Join("rendered", spec.Name, filepath.FromSlash(name))
				if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
					log.Println(spec.Name, err)
					return
				}
				if err := os.WriteFile(target, []byte(content), 0644); err != nil {
					log.Println(spec.Name, err)
					return
				}
			}
		}(spec)
	}
	wg.Wait()
}
