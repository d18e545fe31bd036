package suite

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed suite.schema.json
var schemaJSON []byte

var (
	compiled    *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// File is the YAML form of a suite
type File struct {
	Name  string      `yaml:"name"`
	Cases []CaseEntry `yaml:"cases"`
}

// CaseEntry declares one case: either a reference to a registered workload
// or a shell command with optional setup and teardown commands
type CaseEntry struct {
	Name     string            `yaml:"name"`
	Workload string            `yaml:"workload,omitempty"`
	Command  string            `yaml:"command,omitempty"`
	Setup    string            `yaml:"setup,omitempty"`
	Teardown string            `yaml:"teardown,omitempty"`
	Dir      string            `yaml:"dir,omitempty"`
	Timeout  string            `yaml:"timeout,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
}

// LoadFile reads, validates and resolves a suite file against registry
func LoadFile(path string, registry *Registry) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	cases, err := Parse(data, registry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Parse validates YAML suite data and resolves its cases
func Parse(data []byte, registry *Registry) ([]TestCase, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}

	seen := make(map[string]bool)
	cases := make([]TestCase, 0, len(f.Cases))
	for _, entry := range f.Cases {
		if seen[entry.Name] {
			return nil, fmt.Errorf("duplicate case %q", entry.Name)
		}
		seen[entry.Name] = true

		tc, err := entry.resolve(registry)
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func (e CaseEntry) resolve(registry *Registry) (TestCase, error) {
	if e.Workload != "" {
		tc, ok := registry.Get(e.Workload)
		if !ok {
			return TestCase{}, fmt.Errorf("case %q: unknown workload %q", e.Name, e.Workload)
		}
		tc.Name = e.Name
		return tc, nil
	}

	spec := CommandSpec{
		Command:  e.Command,
		Setup:    e.Setup,
		Teardown: e.Teardown,
		Dir:      e.Dir,
		Env:      e.Env,
	}
	if e.Timeout != "" {
		d, err := time.ParseDuration(e.Timeout)
		if err != nil {
			return TestCase{}, fmt.Errorf("case %q: invalid timeout: %w", e.Name, err)
		}
		spec.Timeout = d
	}
	return ShellCase(e.Name, spec)
}

func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal suite schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("suite.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add suite schema resource: %w", err)
			return
		}
		compiled, err = compiler.Compile("suite.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile suite schema: %w", err)
		}
	})
	return compileErr
}

// validate checks YAML data against the embedded schema by way of its JSON form
func validate(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("suite is not representable as JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(asJSON, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("suite validation failed: %w", err)
	}
	return nil
}
