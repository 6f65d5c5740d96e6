package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()

	assert.Equal(t, MultiChoiceFanOut, cfg.MultiChoice)
	assert.Equal(t, TerminateScope, cfg.Terminate)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEngineConfig_FullFile(t *testing.T) {
	path := writeConfig(t, "multi_choice_policy: first-match\nterminate_policy: run\n")

	cfg, err := LoadEngineConfig(path)

	require.NoError(t, err)
	assert.Equal(t, MultiChoiceFirstMatch, cfg.MultiChoice)
	assert.Equal(t, TerminateRun, cfg.Terminate)
}

func TestLoadEngineConfig_MissingFieldsFallBackToDefaults(t *testing.T) {
	path := writeConfig(t, "terminate_policy: run\n")

	cfg, err := LoadEngineConfig(path)

	require.NoError(t, err)
	assert.Equal(t, MultiChoiceFanOut, cfg.MultiChoice)
	assert.Equal(t, TerminateRun, cfg.Terminate)
}

func TestLoadEngineConfig_UnknownPolicyRejected(t *testing.T) {
	path := writeConfig(t, "multi_choice_policy: all-of-them\n")

	_, err := LoadEngineConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid multi_choice_policy")
}

func TestLoadEngineConfig_MissingFile(t *testing.T) {
	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestLoadEngineConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "multi_choice_policy: [unclosed\n")

	_, err := LoadEngineConfig(path)

	assert.Error(t, err)
}

func TestEngineConfig_Validate(t *testing.T) {
	assert.Error(t, EngineConfig{MultiChoice: "x", Terminate: TerminateScope}.Validate())
	assert.Error(t, EngineConfig{MultiChoice: MultiChoiceFanOut, Terminate: "x"}.Validate())
	assert.NoError(t, EngineConfig{MultiChoice: MultiChoiceFirstMatch, Terminate: TerminateRun}.Validate())
}
