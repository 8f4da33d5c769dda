package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/serving"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func memoryConfig(t *testing.T, dir string) string {
	t.Helper()
	content := writeFile(t, dir, "content.json", `[
		{"id": "viz-101", "primary_skill": "python", "vector": [1, 0, 0, 0, 0, 0, 0, 0]},
		{"id": "audio-101", "primary_skill": "sql", "vector": [0, 1, 0, 0, 0, 0, 0, 0]}
	]`)
	roles := writeFile(t, dir, "roles.json", `{"analyst": [0, 0, 0, 0, 0, 0, 0, 1]}`)

	return writeFile(t, dir, "config.yaml", `
log:
  level: disabled
catalog:
  backend: memory
  content_path: `+content+`
  role_vectors_path: `+roles+`
recommend:
  dimension: 8
  k: 1
exploration:
  probability: 0
ranker:
  weights_path: `+filepath.Join(dir, "weights.json")+`
`)
}

// TestRecommendCommand tests the recommend command over the memory backend
func TestRecommendCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := memoryConfig(t, dir)
	payload := writeFile(t, dir, "req.json", `{"learner_id": "c1", "learning_style": "visual"}`)

	out, err := execute(t, "recommend", "--config", cfgPath, "--payload", payload)
	require.NoError(t, err)

	var resp serving.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "c1", resp.LearnerID)
	assert.Equal(t, serving.SourceLive, resp.Source)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, "viz-101", resp.Recommendations[0].NodeID)
	assert.Equal(t, "Matches your python gap", resp.Recommendations[0].Reason)
}

// TestRecommendCommand_InvalidPayload tests exit classification of bad input
func TestRecommendCommand_InvalidPayload(t *testing.T) {
	dir := t.TempDir()
	cfgPath := memoryConfig(t, dir)
	payload := writeFile(t, dir, "req.json", `{"skills": {"python": 0.3}}`)

	_, err := execute(t, "recommend", "--config", cfgPath, "--payload", payload)
	require.Error(t, err)
	assert.Equal(t, 2, serving.ExitCode(err))
}

// TestTrainCommand tests fitting and writing ranker weights
func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := memoryConfig(t, dir)
	examples := writeFile(t, dir, "examples.json", `[
		{"learner": [1, 0, 0, 0, 0, 0, 0, 0], "item": [1, 0, 0, 0, 0, 0, 0, 0], "label": 1},
		{"learner": [1, 0, 0, 0, 0, 0, 0, 0], "item": [0, 1, 0, 0, 0, 0, 0, 0], "label": 0}
	]`)
	weights := filepath.Join(dir, "weights.json")

	_, err := execute(t, "train", "--config", cfgPath, "--examples", examples, "--out", weights)
	require.NoError(t, err)

	data, err := os.ReadFile(weights)
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, float64(8), saved["dimension"])
	assert.Len(t, saved["weights"], 3)
}
