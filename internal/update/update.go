// Package update implements the dashboard-triggered self update: a
// fast-forward git pull of the working tree followed by re-executing
// the current binary with its original arguments.
package update

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/epokrso/steam-analyzer/logger"
)

const pullTimeout = 2 * time.Minute

// Test seams around the process-level operations.
var (
	execFn       = syscall.Exec
	executableFn = os.Executable
)

// Pull fast-forwards the repository at dir. A diverged branch or a
// missing remote fails the pull; the caller decides whether to
// restart anyway.
func Pull(ctx context.Context, dir string) error {
	ctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "pull", "--ff-only")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		return fmt.Errorf("git pull: %w: %s", err, trimmed)
	}
	logger.GetLogger().WithComponent("update").WithFields(logger.Fields{
		"output": trimmed,
	}).Info("git pull complete")
	return nil
}

// Restart replaces the current process with a fresh invocation of the
// same binary and arguments. It only returns on failure.
func Restart() error {
	bin, err := executableFn()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	logger.GetLogger().WithComponent("update").WithFields(logger.Fields{
		"binary": bin,
	}).Info("restarting")
	if err := execFn(bin, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", bin, err)
	}
	return nil
}

// Run performs the full update sequence after the poll loop has
// exited. A failed pull still restarts, so a broken checkout cannot
// leave the process dead.
func Run(ctx context.Context, dir string) error {
	if err := Pull(ctx, dir); err != nil {
		logger.GetLogger().WithComponent("update").WithError(err).Warn("pull failed, restarting on current version")
	}
	return Restart()
}
