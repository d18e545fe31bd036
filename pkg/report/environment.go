package report

import (
	"runtime"
)

// Environment identifies what produced a measurement. Column names in the
// history file are fixed: framework maps to "rails" and runtime to "ruby".
type Environment struct {
	App       string
	Framework string
	Runtime   string
	Platform  string
}

// DetectEnvironment fills in the runtime and platform of this process
func DetectEnvironment(app, framework string) Environment {
	return Environment{
		App:       app,
		Framework: framework,
		Runtime:   runtime.Version(),
		Platform:  runtime.GOOS + "-" + runtime.GOARCH,
	}
}
