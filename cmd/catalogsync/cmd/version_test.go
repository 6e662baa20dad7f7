package cmd

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCommandStructure(t *testing.T) {
	assert.NotNil(t, versionCmd)
	assert.Equal(t, "version", versionCmd.Use)
	assert.NotEmpty(t, versionCmd.Short)
	assert.NotNil(t, versionCmd.Run)
}

func TestRunVersion(t *testing.T) {
	originalVersion := Version
	originalCommit := Commit
	originalBuildDate := BuildDate
	defer func() {
		Version = originalVersion
		Commit = originalCommit
		BuildDate = originalBuildDate
	}()

	tests := []struct {
		name         string
		version      string
		commit       string
		buildDate    string
		wantInOutput []string
	}{
		{
			name:      "dev version",
			version:   "0.0.1-dev",
			commit:    "unknown",
			buildDate: "unknown",
			wantInOutput: []string{
				"catalogsync 0.0.1-dev",
				"Commit:     unknown",
				"Built:      unknown",
			},
		},
		{
			name:      "release version",
			version:   "1.2.0",
			commit:    "abc123def456",
			buildDate: "2026-10-01T12:00:00Z",
			wantInOutput: []string{
				"catalogsync 1.2.0",
				"Commit:     abc123def456",
				"Built:      2026-10-01T12:00:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version
			Commit = tt.commit
			BuildDate = tt.buildDate

			var buf bytes.Buffer
			versionCmd.SetOut(&buf)
			defer versionCmd.SetOut(nil)

			runVersion(versionCmd, nil)

			out := buf.String()
			for _, want := range tt.wantInOutput {
				assert.Contains(t, out, want)
			}
			assert.Contains(t, out, runtime.Version())
			assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
		})
	}
}

func TestVersionVariables(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Commit)
	assert.NotEmpty(t, BuildDate)
}
