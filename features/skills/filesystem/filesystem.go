// Package filesystem is a skills.Source backed by a directory tree of
// SKILL.md files, each with a YAML front-matter block describing the
// skill's metadata and a markdown body.
package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"goa.design/skillsruntime/skills"
)

// Source scans root for SKILL.md files.
type Source struct {
	Namespace string
	Root      string
}

type frontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Scan walks Root for every file literally named SKILL.md and parses its
// front matter into skills.Metadata.
func (s *Source) Scan(_ context.Context) ([]skills.Metadata, error) {
	var out []skills.Metadata
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "SKILL.md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fm, body, parseErr := splitFrontMatter(data)
		if parseErr != nil {
			return fmt.Errorf("filesystem: parse %s: %w", path, parseErr)
		}
		out = append(out, skills.Metadata{
			Namespace:   s.Namespace,
			Name:        fm.Name,
			Description: fm.Description,
			BodyBytes:   len(body),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadBody reads the body of the skill named name under Root.
func (s *Source) LoadBody(_ context.Context, _, name string) (string, error) {
	var body string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "SKILL.md" {
			return err
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		fm, b, parseErr := splitFrontMatter(data)
		if parseErr != nil {
			return nil
		}
		if fm.Name == name {
			body = b
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

// splitFrontMatter splits a SKILL.md file into its YAML front matter
// (delimited by --- lines) and markdown body.
func splitFrontMatter(data []byte) (frontMatter, string, error) {
	const delim = "---"
	text := string(data)
	if !strings.HasPrefix(strings.TrimSpace(text), delim) {
		return frontMatter{}, text, nil
	}
	parts := strings.SplitN(text, delim, 3)
	if len(parts) < 3 {
		return frontMatter{}, "", fmt.Errorf("malformed front matter")
	}
	var fm frontMatter
	if err := yaml.NewDecoder(bytes.NewReader([]byte(parts[1]))).Decode(&fm); err != nil {
		return frontMatter{}, "", err
	}
	return fm, strings.TrimSpace(parts[2]), nil
}
