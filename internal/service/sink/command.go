package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/logger"
)

// ErrUnsupportedOS indicates there is no default player for the current OS.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Placeholders replaced in every command argument on Start.
const (
	PlaceholderID    = "{id}"
	PlaceholderLabel = "{label}"
)

// DefaultCommand returns a player command using the tools each OS ships with:
//   - Linux:   paplay with the freedesktop alarm sound
//   - macOS:   afplay with a system sound
//   - Windows: PowerShell's SoundPlayer
func DefaultCommand() ([]string, error) {
	osName := strings.ToLower(runtime.GOOS)

	switch {
	case strings.Contains(osName, "linux"):
		return []string{"paplay", "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga"}, nil
	case strings.Contains(osName, "darwin"):
		return []string{"afplay", "/System/Library/Sounds/Glass.aiff"}, nil
	case strings.Contains(osName, "windows"):
		return []string{
			"powershell.exe", "-NoProfile", "-Command",
			`(New-Object Media.SoundPlayer 'C:\Windows\Media\Alarm01.wav').PlaySync()`,
		}, nil
	default:
		return nil, fmt.Errorf("no default alarm player for %s: %w", runtime.GOOS, ErrUnsupportedOS)
	}
}

// RestartDelay is the pause before a finished player is launched again.
const RestartDelay = 250 * time.Millisecond

// CommandSink runs an external player in a loop while the alarm sounds.
type CommandSink struct {
	argv         []string
	restartDelay time.Duration
	cmd          *exec.Cmd
	quit         chan struct{}
	done         chan struct{}
	launches     int
	mu           sync.Mutex
}

// NewCommandSink creates a sink running argv. An empty argv selects
// DefaultCommand.
func NewCommandSink(argv []string) (*CommandSink, error) {
	if len(argv) == 0 {
		var err error
		if argv, err = DefaultCommand(); err != nil {
			return nil, err
		}
	}

	return &CommandSink{
		argv:         argv,
		restartDelay: RestartDelay,
	}, nil
}

// Start launches the player and keeps relaunching it after every exit until
// Stop is called. The processes are not bound to ctx.
func (s *CommandSink) Start(ctx context.Context, checkpoint domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quit != nil {
		return nil
	}

	replacer := strings.NewReplacer(PlaceholderID, checkpoint.ID, PlaceholderLabel, checkpoint.Label)

	args := make([]string, len(s.argv))
	for i, arg := range s.argv {
		args[i] = replacer.Replace(arg)
	}

	cmd, err := s.launch(args)
	if err != nil {
		return err
	}

	var (
		quit = make(chan struct{})
		done = make(chan struct{})
	)

	s.quit, s.done = quit, done

	go s.loop(ctx, args, cmd, quit, done)

	logger.InfoKV(ctx, "Alarm player started", "pid", cmd.Process.Pid)

	return nil
}

// launch starts one player process. The caller holds s.mu.
func (s *CommandSink) launch(args []string) (*exec.Cmd, error) {
	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec,noctx // Argv comes from operator config; Stop owns the lifetime.
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start alarm player: %w", err)
	}

	s.cmd = cmd
	s.launches++

	return cmd, nil
}

func (s *CommandSink) loop(ctx context.Context, args []string, cmd *exec.Cmd, quit, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		if err := cmd.Wait(); err != nil {
			logger.DebugKV(ctx, "Alarm player exited", "error", err)
		}

		timer.Reset(s.restartDelay)

		select {
		case <-quit:
			return
		case <-timer.C:
		}

		s.mu.Lock()

		select {
		case <-quit:
			s.mu.Unlock()

			return
		default:
		}

		next, err := s.launch(args)

		s.mu.Unlock()

		if err != nil {
			logger.WarnKV(ctx, "Failed to restart alarm player", "error", err)

			return
		}

		cmd = next
	}
}

// Stop ends the loop, kills the current player and waits for it to exit.
func (s *CommandSink) Stop(ctx context.Context) error {
	s.mu.Lock()

	if s.quit == nil {
		s.mu.Unlock()

		return nil
	}

	cmd, done := s.cmd, s.done

	close(s.quit)
	s.cmd, s.quit, s.done = nil, nil, nil

	err := cmd.Process.Kill()

	s.mu.Unlock()

	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill alarm player: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the player loop is active.
func (s *CommandSink) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return false
	}

	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *CommandSink) launchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.launches
}
