package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bolasso/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	if ferr := a.finish(); err == nil {
		err = ferr
	}
	return out.String(), err
}

func TestParseSelectArgs(t *testing.T) {
	cfg, err := parseSelectArgs([]string{"0.9", "a.csv", "b.csv", "freq.csv", "out.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Threshold)
	assert.Equal(t, []string{"a.csv", "b.csv"}, cfg.CoefFiles)
	assert.Equal(t, "freq.csv", cfg.FreqFile)
	assert.Equal(t, "out.csv", cfg.OutFile)

	_, err = parseSelectArgs([]string{"high", "a.csv", "freq.csv", "out.csv"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = parseSelectArgs([]string{"0.5", "freq.csv", "out.csv"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bolasso v"+version)
}

func TestSelectCommand(t *testing.T) {
	dir := t.TempDir()
	run := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	a := run("run1.csv", "var,coef\nintercept,1\nage,1.2\n")
	b := run("run2.csv", "var,coef\nintercept,1\nage,0.0\n")
	freq := filepath.Join(dir, "freq.csv")
	selected := filepath.Join(dir, "selected.csv")
	metricsFile := filepath.Join(dir, "metrics.prom")

	out, err := execute(t, "select", "0.5", a, b, freq, selected,
		"--summary", "5", "--metrics-file", metricsFile, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "age")

	data, err := os.ReadFile(selected)
	require.NoError(t, err)
	assert.Equal(t, "var\nage\n", string(data))

	data, err = os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bolasso_runs_aggregated_total")
}

func TestSelectCommandRejectsArguments(t *testing.T) {
	_, err := execute(t, "select", "0.5", "freq.csv")
	assert.Error(t, err)

	_, err = execute(t, "select", "2", "a.csv", "freq.csv", "out.csv", "--log-level", "error")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "inspect", "x.csc", "--log-level", "loud")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
