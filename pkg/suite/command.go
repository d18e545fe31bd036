package suite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mslinn/perftest/pkg/timing"
)

// ShellPrefix marks an expression that is a shell command rather than a name
const ShellPrefix = "sh:"

// CommandSpec describes a case implemented by external commands
type CommandSpec struct {
	Command  string
	Setup    string
	Teardown string
	Dir      string
	Env      map[string]string
	Timeout  time.Duration
}

// ShellCase builds a case whose body, setup and teardown run through sh -c
func ShellCase(name string, spec CommandSpec) (TestCase, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return TestCase{}, fmt.Errorf("test case %q: command is required", name)
	}

	tc := TestCase{
		Name: sanitizeName(name),
		Body: spec.hook(spec.Command),
	}
	if spec.Setup != "" {
		tc.Setup = spec.hook(spec.Setup)
	}
	if spec.Teardown != "" {
		tc.Teardown = spec.hook(spec.Teardown)
	}
	return tc, nil
}

func (spec CommandSpec) hook(command string) func(ctx context.Context) error {
	opts := &timing.Options{
		Dir:     spec.Dir,
		Timeout: spec.Timeout,
	}
	for k, v := range spec.Env {
		opts.Env = append(opts.Env, k+"="+v)
	}
	return func(ctx context.Context) error {
		return timing.RunContext(ctx, "sh", []string{"-c", command}, opts).Err()
	}
}

// sanitizeName makes an expression usable as a case name and file name
func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", `\`, "_", " ", "_", ":", "_")
	return replacer.Replace(strings.TrimSpace(name))
}
