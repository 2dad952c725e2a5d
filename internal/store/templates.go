package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// templateFile is the on-disk catalog shape:
//
//	templates:
//	  - slug: reading
//	    text: Read for pleasure
//	    hours_per_week: 3
type templateFile struct {
	Templates []struct {
		Slug         string  `yaml:"slug"`
		Text         string  `yaml:"text"`
		HoursPerWeek float64 `yaml:"hours_per_week"`
	} `yaml:"templates"`
}

// SeedTemplates loads the YAML template catalog into the templates table.
// Existing slugs are updated in place, so the file is the source of truth.
func (s *Store) SeedTemplates(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template catalog: %w", err)
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse template catalog: %w", err)
	}

	for _, t := range file.Templates {
		if t.Slug == "" || t.Text == "" {
			continue
		}
		if err := s.UpsertTemplate(t.Slug, t.Text, t.HoursPerWeek); err != nil {
			return fmt.Errorf("seed template %q: %w", t.Slug, err)
		}
	}
	return nil
}
