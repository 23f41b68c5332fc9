package appconfig

import "fmt"

// JobbergateConfig holds the template metadata from the jobbergate_config
// section of an application configuration.
type JobbergateConfig struct {
	// DefaultTemplate is the bundle path of the main script template,
	// given either verbatim or relative to the templates/ directory.
	DefaultTemplate string

	// SupportingFiles lists bundle paths of supporting templates, in
	// declaration order.
	SupportingFiles []string

	// SupportingFilesOutputName maps a supporting file path to a
	// one-element list holding its rendered output filename.
	SupportingFilesOutputName map[string][]string
}

// Jobbergate extracts the jobbergate_config section. The section and its
// default_template key are required; supporting_files and
// supporting_files_output_name default to empty.
func (m *Mapping) Jobbergate() (JobbergateConfig, error) {
	var jc JobbergateConfig

	section, ok := m.Get(ConfigSection)
	if !ok || !section.IsNamespace() {
		return jc, fmt.Errorf("appconfig: configuration has no %s section", ConfigSection)
	}
	ns := section.Namespace

	if v, ok := ns.Get("default_template"); ok {
		jc.DefaultTemplate, _ = v.Scalar.(string)
	}
	if jc.DefaultTemplate == "" {
		return jc, fmt.Errorf("appconfig: %s has no default_template", ConfigSection)
	}

	if v, ok := ns.Get("supporting_files"); ok && v.Scalar != nil {
		files, err := stringSlice(v.Scalar)
		if err != nil {
			return jc, fmt.Errorf("appconfig: invalid supporting_files: %v", err)
		}
		jc.SupportingFiles = files
	}

	if v, ok := ns.Get("supporting_files_output_name"); ok && v.Scalar != nil {
		raw, ok := v.Scalar.(map[string]any)
		if !ok {
			return jc, fmt.Errorf("appconfig: supporting_files_output_name must be a mapping")
		}
		jc.SupportingFilesOutputName = make(map[string][]string, len(raw))
		for key, names := range raw {
			list, err := stringSlice(names)
			if err != nil {
				return jc, fmt.Errorf("appconfig: invalid supporting_files_output_name for %q: %v", key, err)
			}
			jc.SupportingFilesOutputName[key] = list
		}
	}

	return jc, nil
}

func stringSlice(v any) ([]string, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a sequence, got %T", v)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string entry, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
