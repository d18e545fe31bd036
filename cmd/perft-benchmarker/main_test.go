package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mslinn/perftest/pkg/suite"
)

func TestParseArgs(t *testing.T) {
	times, exprs, err := parseArgs([]string{"10", "sort", "fib"})
	require.NoError(t, err)
	assert.Equal(t, 10, times)
	assert.Equal(t, []string{"sort", "fib"}, exprs)

	times, exprs, err = parseArgs([]string{"sort"})
	require.NoError(t, err)
	assert.Equal(t, 1, times)
	assert.Equal(t, []string{"sort"}, exprs)

	_, _, err = parseArgs([]string{"3"})
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"0", "sort"})
	assert.Error(t, err)
}

func TestBenchmark_HooksOutsideCount(t *testing.T) {
	var events []string
	tc := suite.TestCase{
		Name:     "counted",
		Body:     func(context.Context) error { events = append(events, "body"); return nil },
		Setup:    func(context.Context) error { events = append(events, "setup"); return nil },
		Teardown: func(context.Context) error { events = append(events, "teardown"); return nil },
	}

	elapsed := benchmark(context.Background(), "counted", tc, 3)
	require.NoError(t, elapsed.Error)
	assert.Equal(t, 3, elapsed.Times)
	assert.Equal(t, []string{"setup", "body", "body", "body", "teardown"}, events)
}

func TestBenchmark_SetupFailure(t *testing.T) {
	tc := suite.TestCase{
		Name:  "broken",
		Body:  func(context.Context) error { return nil },
		Setup: func(context.Context) error { return errors.New("no fixture") },
	}

	elapsed := benchmark(context.Background(), "broken", tc, 3)
	require.Error(t, elapsed.Error)
	assert.Contains(t, elapsed.String(), "setup failed")
}
