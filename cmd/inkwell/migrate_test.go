// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/pkg/errutil"
)

type fakeMigrator struct {
	calls    []string
	version  uint
	dirty    bool
	applied  []uint
	pending  []uint
	forced   int
	err      error
	closeErr error
}

func (m *fakeMigrator) Up() error {
	m.calls = append(m.calls, "up")
	return m.err
}

func (m *fakeMigrator) Down() error {
	m.calls = append(m.calls, "down")
	return m.err
}

func (m *fakeMigrator) Steps(n int) error {
	m.calls = append(m.calls, fmt.Sprintf("steps %d", n))
	return m.err
}

func (m *fakeMigrator) Version() (uint, bool, error) {
	m.calls = append(m.calls, "version")
	return m.version, m.dirty, m.err
}

func (m *fakeMigrator) Force(v int) error {
	m.calls = append(m.calls, "force")
	m.forced = v
	return m.err
}

func (m *fakeMigrator) PendingMigrations() ([]uint, error) {
	return m.pending, m.err
}

func (m *fakeMigrator) AppliedMigrations() ([]uint, error) {
	return m.applied, m.err
}

func (m *fakeMigrator) Close() error {
	m.calls = append(m.calls, "close")
	return m.closeErr
}

// runMigrate executes "migrate args..." against m and returns the output.
func runMigrate(t *testing.T, m *fakeMigrator, args ...string) (string, error) {
	t.Helper()
	isolateConfig(t)

	var gotURL string
	root := &cobra.Command{Use: "inkwell", SilenceUsage: true, SilenceErrors: true}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(newMigrateCmd(func(url string) (Migrator, error) {
		gotURL = url
		return m, nil
	}))

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs(append([]string{"migrate", "--database-url=postgres://localhost/inkwell"}, args...))
	err := root.Execute()
	if err == nil {
		assert.Equal(t, "postgres://localhost/inkwell", gotURL)
	}
	return buf.String(), err
}

func TestMigrateUp(t *testing.T) {
	m := &fakeMigrator{}
	out, err := runMigrate(t, m, "up")

	require.NoError(t, err)
	assert.Equal(t, []string{"up", "close"}, m.calls)
	assert.Contains(t, out, "Migrations applied")
}

func TestMigrateDown_ClosesOnFailure(t *testing.T) {
	m := &fakeMigrator{err: errors.New("boom")}
	_, err := runMigrate(t, m, "down")

	require.Error(t, err)
	assert.Equal(t, []string{"down", "close"}, m.calls)
}

func TestMigrateDown_Steps(t *testing.T) {
	m := &fakeMigrator{}
	out, err := runMigrate(t, m, "down", "--steps=2")

	require.NoError(t, err)
	assert.Equal(t, []string{"steps -2", "close"}, m.calls)
	assert.Contains(t, out, "Rolled back 2 migration(s)")
}

func TestMigrateDown_NegativeSteps(t *testing.T) {
	m := &fakeMigrator{}
	_, err := runMigrate(t, m, "down", "--steps=-1")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_STEPS")
	assert.Equal(t, []string{"close"}, m.calls)
}

func TestMigrateVersion(t *testing.T) {
	out, err := runMigrate(t, &fakeMigrator{version: 2}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version 2")
	assert.NotContains(t, out, "dirty")

	out, err = runMigrate(t, &fakeMigrator{version: 1, dirty: true}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version 1 (dirty)")
}

func TestMigrateStatus(t *testing.T) {
	out, err := runMigrate(t, &fakeMigrator{applied: []uint{1}, pending: []uint{2}}, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "000001_create_users")
	assert.Contains(t, out, "000002_create_sessions")
}

func TestMigrateForce(t *testing.T) {
	m := &fakeMigrator{}
	out, err := runMigrate(t, m, "force", "1")

	require.NoError(t, err)
	assert.Equal(t, 1, m.forced)
	assert.Contains(t, out, "Forced version 1")

	_, err = runMigrate(t, &fakeMigrator{}, "force", "abc")
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrate_CloseErrorReported(t *testing.T) {
	closeErr := errors.New("close failed")
	_, err := runMigrate(t, &fakeMigrator{closeErr: closeErr}, "up")
	assert.ErrorIs(t, err, closeErr)
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "integer", input: "3", wantVersion: 3},
		{name: "zero", input: "0", wantVersion: 0},
		{name: "negative", input: "-1", wantVersion: -1},
		{name: "leading whitespace", input: "  42", wantVersion: 42},
		{name: "stops at first non-digit", input: "3abc", wantVersion: 3},
		{name: "non-numeric", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}
