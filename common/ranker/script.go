package ranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lyzr/colorsort/common/metrics"
	"github.com/lyzr/colorsort/common/models"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// scriptInput is the JSON document handed to the external script
type scriptInput struct {
	Color string   `json:"color"`
	Files []string `json:"files"`
	IDs   []int64  `json:"ids"`
}

// ScriptRanker runs an external ranking script.
// The script gets the path of a JSON input file as its only argument and
// prints the sorted ID array as the last line of its standard output.
type ScriptRanker struct {
	interpreter string
	script      string
	tempDir     string
	logger      Logger
}

// NewScriptRanker creates a ranker invoking `interpreter script <input.json>`
func NewScriptRanker(interpreter, script, tempDir string, logger Logger) *ScriptRanker {
	return &ScriptRanker{
		interpreter: interpreter,
		script:      script,
		tempDir:     tempDir,
		logger:      logger,
	}
}

// Rank runs the script for req
func (r *ScriptRanker) Rank(ctx context.Context, req Request) ([]int64, error) {
	start := time.Now()
	defer func() {
		metrics.RankerDuration.WithLabelValues("script").Observe(time.Since(start).Seconds())
	}()

	in := scriptInput{
		Color: req.Color,
		Files: make([]string, len(req.Items)),
		IDs:   make([]int64, len(req.Items)),
	}
	for i, it := range req.Items {
		in.Files[i] = it.Path
		in.IDs[i] = it.ImageID
	}

	file, err := os.CreateTemp(r.tempDir, "colorsort-*.json")
	if err != nil {
		return nil, models.NewComputationError("script", fmt.Errorf("failed to create input file: %w", err))
	}
	defer os.Remove(file.Name())

	if err := json.NewEncoder(file).Encode(in); err != nil {
		file.Close()
		return nil, models.NewComputationError("script", fmt.Errorf("failed to write input file: %w", err))
	}
	if err := file.Close(); err != nil {
		return nil, models.NewComputationError("script", fmt.Errorf("failed to write input file: %w", err))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.interpreter, r.script, file.Name())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, models.NewComputationError("script", ctxErr)
		}
		r.logger.Error("ranking script failed",
			"script", r.script,
			"error", err,
			"stderr", tail(stderr.String(), 2048))
		return nil, models.NewComputationError("script", fmt.Errorf("%w: %s", err, tail(stderr.String(), 512)))
	}

	ids, err := parseLastLine(stdout.String())
	if err != nil {
		return nil, models.NewComputationError("script", err)
	}

	if err := Validate(req.Items, ids); err != nil {
		return nil, err
	}

	r.logger.Debug("ranking script finished", "items", len(req.Items), "duration_ms", time.Since(start).Milliseconds())
	return ids, nil
}

func parseLastLine(out string) ([]int64, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return nil, errors.New("ranking script produced no output")
	}

	var ids []int64
	if err := json.Unmarshal([]byte(last), &ids); err != nil {
		return nil, fmt.Errorf("ranking script produced malformed output %q: %w", tail(last, 128), err)
	}
	if ids == nil {
		return nil, errors.New("ranking script produced null output")
	}
	return ids, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
