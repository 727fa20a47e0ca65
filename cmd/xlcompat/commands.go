package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"xlcompat/pkg/compat"
	"xlcompat/pkg/disk"
	"xlcompat/pkg/inspector"
	"xlcompat/pkg/launcher"
)

// withTools opens the facade around fn and closes the log afterwards.
func (a *app) withTools(fn func(cmd *cobra.Command, t *compat.Tools, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		t, err := a.tools()
		if err != nil {
			return err
		}
		defer t.Close()
		return fn(cmd, t, args)
	}
}

func (a *app) ensureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Download the runtime if needed, bootstrap the prefix and install DXVK",
		Args:  cobra.NoArgs,
		RunE: a.withTools(func(cmd *cobra.Command, t *compat.Tools, args []string) error {
			task := a.disp.StartTask("ensure")
			defer task.Done()

			if err := t.EnsureTool(cmd.Context(), task); err != nil {
				return err
			}
			if err := t.EnsureGameFixes(t.Settings().GameConfigDir); err != nil {
				return err
			}
			a.disp.Print("Ready: " + t.Settings().Wine.Prefix)
			return nil
		}),
	}
}

func (a *app) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the prefix with all guest data and create a fresh one",
		Args:  cobra.NoArgs,
		RunE: a.withTools(func(cmd *cobra.Command, t *compat.Tools, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", t.Settings().Wine.Prefix)
			}
			if err := t.ResetPrefix(); err != nil {
				return err
			}
			a.disp.Print("Prefix reset: " + t.Settings().Wine.Prefix)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion of the prefix")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	var (
		captureStdout bool
		shellString   bool
		dir           string
		env           map[string]string
	)
	cmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARGS...]",
		Short: "Run a guest command in the prefix and wait for it",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withTools(func(cmd *cobra.Command, t *compat.Tools, args []string) error {
			opts := launcher.Options{Dir: dir, Env: env, RedirectStdout: captureStdout}

			var p *launcher.Process
			var err error
			if shellString {
				p, err = t.RunInPrefix(strings.Join(args, " "), opts)
			} else {
				p, err = t.RunArgsInPrefix(args, opts)
			}
			if err != nil {
				return err
			}

			if captureStdout {
				if err := copyOutput(cmd.OutOrStdout(), p); err != nil {
					return err
				}
			}
			return exitStatus(p.Wait())
		}),
	}
	cmd.Flags().BoolVar(&captureStdout, "stdout", false, "capture guest stdout and print it")
	cmd.Flags().BoolVar(&shellString, "shell", false, "split the arguments as one Windows style command line")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory")
	cmd.Flags().StringToStringVar(&env, "env", nil, "extra environment, KEY=VALUE")
	return cmd
}

// process is the part of launcher.Process copyOutput needs.
type process interface {
	Stdout() io.Reader
	Kill() error
	Wait() error
}

// copyOutput copies captured guest stdout to w. When w fails the guest is
// killed and reaped so its stderr drain finishes.
func copyOutput(w io.Writer, p process) error {
	if _, err := io.Copy(w, p.Stdout()); err != nil {
		p.Kill()
		p.Wait()
		return fmt.Errorf("failed to copy guest output: %w", err)
	}
	return nil
}

// exitStatus turns a non-zero guest exit into an ExitError with its code.
func exitStatus(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Code: ee.ExitCode()}
	}
	return err
}

func (a *app) pidsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pids NAME",
		Short: "List guest process ids of an executable",
		Args:  cobra.ExactArgs(1),
		RunE: a.withTools(func(cmd *cobra.Command, t *compat.Tools, args []string) error {
			pids, err := t.ProcessIDs(args[0])
			if err != nil {
				return err
			}
			for _, pid := range pids {
				fmt.Fprintf(cmd.OutOrStdout(), "%08x\n", uint32(pid))
			}
			return nil
		}),
	}
}

func (a *app) hostPidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hostpid GUESTPID",
		Short: "Map a hexadecimal guest process id to the host process id",
		Args:  cobra.ExactArgs(1),
		RunE: a.withTools(func(cmd *cobra.Command, t *compat.Tools, args []string) error {
			guest, err := parseGuestPID(args[0])
			if err != nil {
				return err
			}
			host, err := t.HostProcessID(guest)
			if err != nil {
				return err
			}
			if host == 0 {
				return &ExitError{Code: 1, Err: fmt.Errorf("no host process for guest %08x", uint32(guest))}
			}
			fmt.Fprintln(cmd.OutOrStdout(), host)
			return nil
		}),
	}
}

func parseGuestPID(s string) (inspector.GuestPID, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid guest pid %q: %w", s, err)
	}
	return inspector.GuestPID(v), nil
}

func (a *app) winepathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "winepath PATH",
		Short: "Convert a host path to its guest form",
		Args:  cobra.ExactArgs(1),
		RunE: a.withTools(func(cmd *cobra.Command, t *compat.Tools, args []string) error {
			p, err := t.ToWindowsPath(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		}),
	}
}

func (a *app) regCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reg KEY VALUE DATA",
		Short: "Write a string value into the guest registry",
		Args:  cobra.ExactArgs(3),
		RunE: a.withTools(func(cmd *cobra.Command, t *compat.Tools, args []string) error {
			return t.AddRegistryKey(args[0], args[1], args[2])
		}),
	}
}

func (a *app) killCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Terminate every process in the prefix",
		Args:  cobra.NoArgs,
		RunE: a.withTools(func(cmd *cobra.Command, t *compat.Tools, args []string) error {
			return t.Kill()
		}),
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what is installed and how much space it takes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			th := defaultTheme
			_, rerr := os.Stat(s.Wine64Path())
			_, perr := os.Stat(s.Wine.Prefix)
			fmt.Fprintln(out, th.Bold.Render("xlcompat status"))
			fmt.Fprintf(out, "Runtime:  %s %s\n", s.Wine64Path(), th.presence(rerr == nil))
			fmt.Fprintf(out, "Prefix:   %s %s\n", s.Wine.Prefix, th.presence(perr == nil))
			fmt.Fprintf(out, "Startup:  %s\n", s.Wine.StartupType)
			fmt.Fprintf(out, "Variant:  %s\n", s.Variant)
			fmt.Fprintf(out, "Spawn:    %s\n", s.SpawnMode)

			stats, total := disk.Report(s)
			for _, u := range stats {
				fmt.Fprintf(out, "%-8s  %10s  %6d  %s\n", u.Label, u.HumanSize(), u.Items, th.Dim.Render(u.Path))
			}
			fmt.Fprintf(out, "Total: %s\n", humanize.IBytes(uint64(total)))
			return nil
		},
	}
}
