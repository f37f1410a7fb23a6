package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEO3/sbom-compile-orderer/internal/testutil"
)

type scriptedRunner struct {
	mu    sync.Mutex
	calls [][]string
	run   func(name string, args []string) ([]byte, error)
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{name}, args...))
	s.mu.Unlock()
	return s.run(name, args)
}

func argValue(args []string, prefix string) string {
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix)
		}
	}
	return ""
}

func TestMavenTool_Available(t *testing.T) {
	t.Parallel()

	t.Run("probes once", func(t *testing.T) {
		t.Parallel()
		runner := &scriptedRunner{run: func(string, []string) ([]byte, error) { return []byte("Apache Maven 3.9"), nil }}
		tool := NewMavenTool(MavenToolConfig{Runner: runner.Run})

		assert.True(t, tool.Available(testContext()))
		assert.True(t, tool.Available(testContext()))
		assert.Len(t, runner.calls, 1)
		assert.Equal(t, []string{"mvn", "--version"}, runner.calls[0])
	})

	t.Run("missing binary", func(t *testing.T) {
		t.Parallel()
		runner := &scriptedRunner{run: func(string, []string) ([]byte, error) { return nil, errors.New("executable file not found") }}
		tool := NewMavenTool(MavenToolConfig{Runner: runner.Run})

		assert.False(t, tool.Available(testContext()))
	})
}

func TestMavenTool_Fetch(t *testing.T) {
	t.Parallel()

	pom := testutil.POM("org.example", "lib", "1.0")

	t.Run("writes to dest", func(t *testing.T) {
		t.Parallel()
		// Arrange
		runner := &scriptedRunner{run: func(_ string, args []string) ([]byte, error) {
			return nil, os.WriteFile(argValue(args, "-Ddest="), pom, 0o644)
		}}
		tool := NewMavenTool(MavenToolConfig{Runner: runner.Run, RepositoryURL: "https://repo.example"})
		dest := filepath.Join(t.TempDir(), "poms", "lib.pom")

		// Act
		err := tool.Fetch(testContext(), mavenNode(), KindManifest, dest)

		// Assert
		require.NoError(t, err)
		assert.FileExists(t, dest)
		args := runner.calls[0]
		assert.Equal(t, "dependency:get", args[1])
		assert.Contains(t, args, "-Dartifact=org.example:lib:1.0:pom")
		assert.Contains(t, args, "-DremoteRepositories=central::default::https://repo.example")
		assert.Contains(t, args, "-Dtransitive=false")
		assert.Contains(t, args, "-q")
	})

	t.Run("verbose keeps mvn output", func(t *testing.T) {
		t.Parallel()
		runner := &scriptedRunner{run: func(string, []string) ([]byte, error) { return nil, nil }}
		tool := NewMavenTool(MavenToolConfig{Runner: runner.Run, Verbose: true, LocalRepo: t.TempDir()})

		require.NoError(t, tool.Fetch(testContext(), mavenNode(), KindPackage, filepath.Join(t.TempDir(), "x.jar")))
		assert.NotContains(t, runner.calls[0], "-q")
		assert.Contains(t, runner.calls[0], "-Dartifact=org.example:lib:1.0:jar")
	})

	t.Run("copies from the local repository", func(t *testing.T) {
		t.Parallel()
		// Arrange
		local := t.TempDir()
		testutil.WriteFiles(t, local, map[string]string{
			MavenPath(mavenNode(), KindManifest): string(pom),
		})
		runner := &scriptedRunner{run: func(string, []string) ([]byte, error) { return nil, nil }}
		tool := NewMavenTool(MavenToolConfig{Runner: runner.Run, LocalRepo: local})
		dest := filepath.Join(t.TempDir(), "lib.pom")

		// Act
		err := tool.Fetch(testContext(), mavenNode(), KindManifest, dest)

		// Assert
		require.NoError(t, err)
		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, pom, got)
	})

	t.Run("auth output is reported", func(t *testing.T) {
		t.Parallel()
		runner := &scriptedRunner{run: func(string, []string) ([]byte, error) {
			return []byte("[ERROR] status code: 401, reason phrase: Unauthorized"), errors.New("exit status 1")
		}}
		tool := NewMavenTool(MavenToolConfig{Runner: runner.Run})

		err := tool.Fetch(testContext(), mavenNode(), KindManifest, filepath.Join(t.TempDir(), "lib.pom"))
		assert.ErrorIs(t, err, ErrToolAuth)
	})

	t.Run("other failures", func(t *testing.T) {
		t.Parallel()
		runner := &scriptedRunner{run: func(string, []string) ([]byte, error) {
			return []byte("Could not resolve artifact"), errors.New("exit status 1")
		}}
		tool := NewMavenTool(MavenToolConfig{Runner: runner.Run})

		err := tool.Fetch(testContext(), mavenNode(), KindManifest, filepath.Join(t.TempDir(), "lib.pom"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrToolAuth)
	})

	t.Run("tarballs are refused", func(t *testing.T) {
		t.Parallel()
		runner := &scriptedRunner{run: func(string, []string) ([]byte, error) { return nil, nil }}
		tool := NewMavenTool(MavenToolConfig{Runner: runner.Run})

		err := tool.Fetch(testContext(), npmNode(), KindTarball, filepath.Join(t.TempDir(), "x.tgz"))
		require.Error(t, err)
		assert.Empty(t, runner.calls)
	})
}
