package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mslinn/perftest/pkg/mode"
	"github.com/mslinn/perftest/pkg/profile"
)

// ProfileSink renders profile reports in one or more formats, either to
// <dir>/<TestCase>_<format>.<ext> or to a single writer. Benchmark bundles
// are ignored.
type ProfileSink struct {
	formats []profile.Format
	dir     string
	out     io.Writer
	written []string
}

// NewProfileFileSink writes one file per case and format under dir
func NewProfileFileSink(dir string, formats ...profile.Format) *ProfileSink {
	return &ProfileSink{formats: defaultFormats(formats), dir: dir}
}

// NewProfileWriterSink renders every report to w
func NewProfileWriterSink(w io.Writer, formats ...profile.Format) *ProfileSink {
	return &ProfileSink{formats: defaultFormats(formats), out: w}
}

func defaultFormats(formats []profile.Format) []profile.Format {
	if len(formats) == 0 {
		return []profile.Format{profile.Flat}
	}
	return formats
}

func (s *ProfileSink) Name() string { return "profile" }

// Path returns the file a case's report is written to in the given format
func (s *ProfileSink) Path(testCase string, f profile.Format) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.%s", testCase, f, f.Extension()))
}

// Written lists the files produced so far
func (s *ProfileSink) Written() []string {
	return s.written
}

func (s *ProfileSink) Report(ctx context.Context, b *mode.Bundle) error {
	if b.Mode != mode.ProfileMode || b.Profile == nil {
		return nil
	}

	if s.out != nil {
		for _, f := range s.formats {
			if err := profile.Render(s.out, b.Profile, f); err != nil {
				return fmt.Errorf("failed to render %s report: %w", f, err)
			}
		}
		return nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	for _, f := range s.formats {
		path := s.Path(b.TestCase, f)
		if err := s.writeFile(path, b.Profile, f); err != nil {
			return err
		}
		s.written = append(s.written, path)
	}
	return nil
}

func (s *ProfileSink) writeFile(path string, r *profile.Report, f profile.Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := profile.Render(file, r, f); err != nil {
		file.Close()
		return fmt.Errorf("failed to render %s report: %w", f, err)
	}
	return file.Close()
}

func (s *ProfileSink) Close() error { return nil }
