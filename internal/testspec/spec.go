// Package testspec generates the execution script consumed by the remote
// device worker. The script is modelled as a structured document and
// rendered to YAML, so generation is deterministic and testable against
// the structure instead of substrings.
package testspec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Platform selects the device-side test driver.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Mode is the test-selection mode.
type Mode string

const (
	ModeFull       Mode = "full"
	ModeSingleFile Mode = "single_file"
	ModeSingleCase Mode = "single_case"
)

// Selection describes which tests the generated script runs.
// Immutable input; validated by Generate.
type Selection struct {
	Mode       Mode
	FilePath   string
	CaseFilter string
}

// Validate checks mode-specific required fields.
func (s Selection) Validate() error {
	switch s.Mode {
	case ModeFull:
		return nil
	case ModeSingleFile:
		if s.FilePath == "" {
			return fmt.Errorf("single_file selection requires a file path")
		}
		return nil
	case ModeSingleCase:
		if s.FilePath == "" {
			return fmt.Errorf("single_case selection requires a file path")
		}
		if s.CaseFilter == "" {
			return fmt.Errorf("single_case selection requires a case filter")
		}
		return nil
	default:
		return fmt.Errorf("unknown selection mode %q", s.Mode)
	}
}

// Document is the full execution script given to the remote worker.
type Document struct {
	Version string `yaml:"version"`
	Phases  Phases `yaml:"phases"`
}

// Phases are executed in order by the worker; a failing command aborts
// the run except in the post-test phase.
type Phases struct {
	Install  Phase `yaml:"install"`
	PreTest  Phase `yaml:"pre_test"`
	Test     Phase `yaml:"test"`
	PostTest Phase `yaml:"post_test"`
}

// Phase is one ordered command block.
type Phase struct {
	Commands []string `yaml:"commands"`
}

// Render marshals the document to YAML. Identical documents render to
// byte-identical output.
func (d Document) Render() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("render testspec: %w", err)
	}
	return out, nil
}
