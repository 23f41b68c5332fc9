// Package jobscript turns an application bundle plus merged parameters into
// the job script body and injects scheduler directives into it.
package jobscript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/opnlabs/jobforge/pkg/appconfig"
	"github.com/opnlabs/jobforge/pkg/bundle"
	"github.com/opnlabs/jobforge/pkg/render"
)

const (
	// MainScriptKey is the body key holding the rendered main script.
	MainScriptKey = "application.sh"

	templatesPrefix = "templates/"
)

// MissingOutputMappingError reports a supporting file with no entry in
// supporting_files_output_name.
type MissingOutputMappingError struct {
	Path string
}

func (e MissingOutputMappingError) Error() string {
	return fmt.Sprintf("jobscript: supporting file %s has no output name mapping", e.Path)
}

// AmbiguousOutputMappingError reports a supporting file matched by more
// than one supporting_files_output_name entry.
type AmbiguousOutputMappingError struct {
	Path    string
	Matches []string
}

func (e AmbiguousOutputMappingError) Error() string {
	return fmt.Sprintf("jobscript: supporting file %s matches multiple output name mappings: %s",
		e.Path, strings.Join(e.Matches, ", "))
}

// Assemble renders the application's main script and supporting files with
// the flattened parameter set of merged and returns the JSON-encoded body
// (output filename to rendered text) plus a fresh archive holding the
// rendered supporting files under their original bundle paths. The archive
// is a side artifact; callers may discard it.
//
// The main script resolves by exact path or by templates/ + the configured
// name. Any declared member absent from the archive fails with a
// bundle.MemberNotFoundError, and no partial body is returned.
func Assemble(archive *bundle.Archive, merged *appconfig.Mapping) (string, []byte, error) {
	jc, err := merged.Jobbergate()
	if err != nil {
		return "", nil, err
	}
	flat := merged.Flatten()

	wanted := make(map[string]bool, len(jc.SupportingFiles)+2)
	wanted[jc.DefaultTemplate] = true
	wanted[templatesPrefix+jc.DefaultTemplate] = true
	for _, path := range jc.SupportingFiles {
		wanted[path] = true
	}
	members, err := archive.Members(func(name string) bool { return wanted[name] })
	if err != nil {
		return "", nil, err
	}

	mainText, ok := members[jc.DefaultTemplate]
	if !ok {
		mainText, ok = members[templatesPrefix+jc.DefaultTemplate]
	}
	if !ok {
		return "", nil, bundle.MemberNotFoundError{Path: jc.DefaultTemplate}
	}

	body := make(map[string]string, len(jc.SupportingFiles)+1)
	body[MainScriptKey], err = render.Render(mainText, flat)
	if err != nil {
		return "", nil, err
	}

	supportingArchive := bundle.NewWriter()
	defer supportingArchive.Close()

	for _, path := range jc.SupportingFiles {
		text, ok := members[path]
		if !ok {
			return "", nil, bundle.MemberNotFoundError{Path: path}
		}
		outputName, err := resolveOutputName(path, jc.SupportingFilesOutputName)
		if err != nil {
			return "", nil, err
		}
		rendered, err := render.Render(text, flat)
		if err != nil {
			return "", nil, err
		}
		body[outputName] = rendered
		if err := supportingArchive.Add(path, rendered); err != nil {
			return "", nil, err
		}
	}

	if err := supportingArchive.Close(); err != nil {
		return "", nil, err
	}

	encoded, err := encodeBody(body)
	if err != nil {
		return "", nil, err
	}
	return encoded, supportingArchive.Bytes(), nil
}

// resolveOutputName finds the output filename for a supporting file. A
// mapping entry matches when its key contains the member path. Exactly one
// entry must match.
func resolveOutputName(path string, outputs map[string][]string) (string, error) {
	var matches []string
	for key := range outputs {
		if strings.Contains(key, path) {
			matches = append(matches, key)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", MissingOutputMappingError{Path: path}
	case 1:
		names := outputs[matches[0]]
		if len(names) == 0 {
			return "", MissingOutputMappingError{Path: path}
		}
		return names[0], nil
	default:
		return "", AmbiguousOutputMappingError{Path: path, Matches: matches}
	}
}

// DecodeBody decodes the JSON-encoded body back into its output filename
// to rendered text mapping.
func DecodeBody(body string) (map[string]string, error) {
	files := make(map[string]string)
	if err := json.Unmarshal([]byte(body), &files); err != nil {
		return nil, fmt.Errorf("jobscript: unable to decode body: %v", err)
	}
	return files, nil
}

func encodeBody(body map[string]string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return "", fmt.Errorf("jobscript: unable to encode body: %v", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
