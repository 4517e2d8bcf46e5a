package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceSource = `package services

import _ "github.com/toyz/docmeta/pkg/vocab"

// UserService loads users.
//
// @vocab.Service(mode=Transient)
// @since 1.2
type UserService struct{}

// @vocab.Init
func (s *UserService) Start() error { return nil }

// @Cache(ttl=)
func (s *UserService) Lookup() {}
`

func writePackage(t *testing.T, source string) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/app\n\ngo 1.21\n"), 0o644))
	dir := filepath.Join(root, "services")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.go"), []byte(source), 0o644))
	return dir
}

func TestRunArguments(t *testing.T) {
	t.Run("help flag", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run([]string{"--help"}, &stdout, &stderr)

		assert.Equal(t, 0, code)
		assert.Contains(t, stderr.String(), "Usage:")
		assert.Contains(t, stderr.String(), "Docmeta Annotation Inspector")
		assert.Contains(t, stderr.String(), "-module")
		assert.Contains(t, stderr.String(), "directory-paths")
	})

	t.Run("no arguments", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run(nil, &stdout, &stderr)

		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "At least one directory path is required")
	})

	t.Run("unknown flag", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, run([]string{"--nope", "."}, &stdout, &stderr))
	})

	t.Run("nonexistent directory", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run([]string{"--quiet", "/nonexistent/directory"}, &stdout, &stderr)

		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "File System Error")
		assert.Empty(t, stdout.String())
	})
}

func TestRunResolvesPackage(t *testing.T) {
	dir := writePackage(t, serviceSource)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--quiet", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	output := stdout.String()
	assert.Contains(t, output, "example.com/app/services.UserService\n  type\n")
	assert.Contains(t, output, "@github.com/toyz/docmeta/pkg/vocab.Service Service{Mode:Transient Init:Same Manual:}")
	assert.Contains(t, output, "    @since\n      type: 1.2\n")
	assert.Contains(t, output, "  method Start()\n    @github.com/toyz/docmeta/pkg/vocab.Init Init{}\n")
	assert.Contains(t, output, "  method Lookup()\n    @Cache\n")

	// The malformed @Cache value is recorded, not fatal, in the default mode.
	assert.NotContains(t, stderr.String(), "ERROR")
}

func TestRunStrictMode(t *testing.T) {
	dir := writePackage(t, serviceSource)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--quiet", "--strict", dir}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Malformed Annotation Value")
	assert.Contains(t, stderr.String(), "Annotation Value Syntax:")
}

func TestRunModuleFlag(t *testing.T) {
	dir := writePackage(t, serviceSource)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--quiet", "--module", "example.org/other", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "example.org/other/services.UserService\n")
}

func TestRunInvalidConfiguration(t *testing.T) {
	dir := writePackage(t, serviceSource)

	t.Run("module path", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run([]string{"--quiet", "--module", "not a module", dir}, &stdout, &stderr)

		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), "Configuration Error")
		assert.Contains(t, stderr.String(), "invalid configuration 'module'")
		assert.Empty(t, stdout.String())
	})

	t.Run("type attributes", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run([]string{"--quiet", "--type-attrs", "type,bad=name", dir}, &stdout, &stderr)

		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), "invalid configuration 'type-attrs'")
	})
}

func TestRunReportsSuccess(t *testing.T) {
	dir := writePackage(t, serviceSource)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--no-color", "--verbose", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	log := stderr.String()
	assert.Contains(t, log, "\nConfiguration:\n  - Target directories: "+dir+"\n")
	assert.Contains(t, log, "Inspection Complete")
	assert.Contains(t, log, "Inspection finished without errors\n")
	assert.NotContains(t, log, "\x1b[")
	assert.Regexp(t, `(?m)^\[VERBOSE\] Found 1 package directories$`, log)
}

func TestRunTimestamps(t *testing.T) {
	dir := writePackage(t, serviceSource)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--no-color", "--verbose", "--timestamps", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Regexp(t, `(?m)^\d\d:\d\d:\d\d \[VERBOSE\] Found 1 package directories$`, stderr.String())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"type", "typeName"}, splitList(" type, ,typeName "))
	assert.Nil(t, splitList(""))
}
