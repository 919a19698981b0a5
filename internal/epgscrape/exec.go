package epgscrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// runExternalScraper spawns the configured external program, writes the
// input map as JSON on its standard input, and parses its standard
// output as a JSON object (§6). Exit code > 0 and empty output are
// treated as "no new information": a nil map with a nil error.
//
// Invocation uses os/exec with a context-bounded timeout and buffered
// stdout/stderr capture rather than streaming pipes, since scrape
// payloads are small JSON objects.
func runExternalScraper(ctx context.Context, execPath string, timeout time.Duration, input map[string]any) (map[string]any, error) {
	if execPath == "" {
		return nil, fmt.Errorf("epgscrape: no executable configured")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshaling scrape input: %w", err)
	}

	cmd := exec.CommandContext(ctx, execPath)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			// The process never ran at all (missing binary, context
			// cancellation): a genuine ExternalProgramFailure.
			return nil, fmt.Errorf("running scrape program: %w", err)
		}
		// A non-zero exit is "no new information" (§6): whatever the
		// program wrote to stdout is discarded.
		return nil, nil
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, nil
	}

	var result map[string]any
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("parsing scrape output: %w", err)
	}
	return result, nil
}
