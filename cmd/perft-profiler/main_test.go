package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mslinn/perftest/pkg/profile"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		times  int
		format profile.Format
	}{
		{"expr only", []string{"fib"}, 1, profile.Flat},
		{"times", []string{"fib", "20"}, 20, profile.Flat},
		{"times and format", []string{"fib", "20", "tree"}, 20, profile.Tree},
		{"format only", []string{"fib", "graph_html"}, 1, profile.GraphHTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, "fib", req.expr)
			assert.Equal(t, tt.times, req.times)
			assert.Equal(t, tt.format, req.format)
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"fib", "0"},
		{"fib", "pie"},
		{"fib", "1", "flat", "extra"},
	} {
		_, err := parseArgs(args)
		assert.Error(t, err, "%v", args)
	}
}
