package backends

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/paperglass/paperglass/pkg/logging"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner shells out via os/exec.
type ExecRunner struct {
	Logger logging.Logger
}

var _ Runner = (*ExecRunner)(nil)

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	elapsed := time.Since(start)

	logger := r.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err != nil {
		logger.Error("exec failed",
			logging.F("cmd", name),
			logging.F("args", strings.Join(args, " ")),
			logging.F("duration_ms", elapsed.Milliseconds()),
			logging.F("stderr", truncate(errb.String(), 8<<10)),
			logging.Err(err))
	} else {
		logger.Debug("exec ok",
			logging.F("cmd", name),
			logging.F("duration_ms", elapsed.Milliseconds()),
			logging.F("stdout_bytes", out.Len()))
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// writeTempPDF materializes document bytes for tools that only accept a
// file path. Returns the path and a cleanup func.
func writeTempPDF(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "paperglass-*.pdf")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
