package extractor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"
)

const defaultTimeout = 60 * time.Second

// ProcessExtractor runs an external tool as a subprocess and parses its
// marker-delimited output. The tool receives the target file path as its
// sole argument; when Interpreter is set the tool is run through it
// (interpreter toolPath filePath), otherwise the tool binary is executed
// directly.
type ProcessExtractor struct {
	ToolPath    string
	Interpreter string
	Timeout     time.Duration

	logf func(format string, args ...any)
}

// NewProcessExtractor builds a ProcessExtractor. A zero timeout falls back
// to the 60 second default.
func NewProcessExtractor(toolPath, interpreter string, timeout time.Duration) *ProcessExtractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ProcessExtractor{
		ToolPath:    toolPath,
		Interpreter: interpreter,
		Timeout:     timeout,
		logf:        log.Printf,
	}
}

var _ Extractor = (*ProcessExtractor)(nil)

// Extract checks every precondition first so a missing file, tool, or
// interpreter is reported without spawning anything, then runs the tool
// under a deadline and classifies the outcome. Exactly one of metadata,
// ProcessingError, ParseError, or NotFoundError is produced per call.
func (p *ProcessExtractor) Extract(ctx context.Context, filePath string) (*Metadata, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, &NotFoundError{What: "file", Path: filePath}
	}
	if _, err := os.Stat(p.ToolPath); err != nil {
		return nil, &NotFoundError{What: "extraction tool", Path: p.ToolPath}
	}
	if p.Interpreter != "" {
		if _, err := os.Stat(p.Interpreter); err != nil {
			if _, lerr := exec.LookPath(p.Interpreter); lerr != nil {
				return nil, &NotFoundError{What: "interpreter", Path: p.Interpreter}
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	var cmd *exec.Cmd
	if p.Interpreter != "" {
		cmd = exec.CommandContext(ctx, p.Interpreter, p.ToolPath, filePath)
	} else {
		cmd = exec.CommandContext(ctx, p.ToolPath, filePath)
	}
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start extraction tool: %w", err)
	}

	collector := &payloadCollector{}
	sink := &stderrSink{logf: p.logf}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdout, collector.consume)
	}()
	go func() {
		defer wg.Done()
		scanLines(stderr, sink.consume)
	}()

	// Both pipes must be drained before Wait closes them.
	wg.Wait()
	waitErr := cmd.Wait()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &ProcessingError{Stderr: sink.errorText(), Timeout: true}
	}

	errText := sink.errorText()
	if waitErr != nil || errText != "" {
		return nil, &ProcessingError{Stderr: errText, ExitCode: cmd.ProcessState.ExitCode()}
	}

	return parsePayload(collector)
}

func parsePayload(c *payloadCollector) (*Metadata, error) {
	payload, ok := c.result()
	if !ok {
		return nil, &ParseError{Raw: payload, Err: fmt.Errorf("no payload block in tool output")}
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		return nil, &ParseError{Raw: payload, Err: err}
	}
	return &meta, nil
}

func scanLines(r io.Reader, consume func(string)) {
	scanner := bufio.NewScanner(r)
	// Image previews are inlined as base64, so single lines can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		consume(scanner.Text())
	}
}
