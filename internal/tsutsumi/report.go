package tsutsumi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StepResult records one pipeline step in the build report.
type StepResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ns"`
	Status   string        `json:"status"` // "ok" or "failed"
	Error    string        `json:"error,omitempty"`
}

// BuildReport is written to LogDir/report.json after every run, pass or
// fail, so the log command and CI can inspect what happened.
type BuildReport struct {
	App       string        `json:"app"`
	Version   string        `json:"tsutsumi_version"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Steps     []StepResult  `json:"steps"`
	Artifact  *ArtifactInfo `json:"artifact,omitempty"`
	Success   bool          `json:"success"`
}

func NewBuildReport() *BuildReport {
	return &BuildReport{
		App:       AppName,
		Version:   version,
		StartedAt: time.Now(),
	}
}

func (r *BuildReport) AddStep(name string, d time.Duration, err error) {
	res := StepResult{Name: name, Duration: d, Status: "ok"}
	if err != nil {
		res.Status = "failed"
		res.Error = err.Error()
	}
	r.Steps = append(r.Steps, res)
}

// Finish seals the report. A nil artifact marks the run as failed.
func (r *BuildReport) Finish(artifact *ArtifactInfo) {
	r.Duration = time.Since(r.StartedAt)
	r.Artifact = artifact
	r.Success = artifact != nil
}

func reportPath() string {
	return filepath.Join(LogDir, "report.json")
}

func (r *BuildReport) Write() error {
	if err := os.MkdirAll(LogDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(reportPath(), data, 0o644)
}

// LoadBuildReport reads the report of the most recent run.
func LoadBuildReport() (*BuildReport, error) {
	data, err := os.ReadFile(reportPath())
	if err != nil {
		return nil, fmt.Errorf("no build report found, run a build first: %w", err)
	}
	var r BuildReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse build report: %w", err)
	}
	return &r, nil
}
