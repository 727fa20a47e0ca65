package launcher

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xlcompat/pkg/common"
	"xlcompat/pkg/config"
	"xlcompat/pkg/devel"
	"xlcompat/pkg/logsink"
	"xlcompat/pkg/spawn"
)

func newTestLauncher(t *testing.T, spawner spawn.Spawner) (*Launcher, *devel.FakeRuntime, *bytes.Buffer) {
	t.Helper()
	rt, err := devel.NewFakeRuntime(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := testSettings()
	s.Wine.Prefix = filepath.Join(t.TempDir(), "prefix")
	s.Wine.StartupType = config.StartupCustom
	s.Wine.CustomBinPath = rt.BinDir

	log := &bytes.Buffer{}
	l := New(s, logsink.New(log), spawner)
	l.Getenv = func(string) string { return "" }
	return l, rt, log
}

func TestRunArgsCapturesStdoutAndEnv(t *testing.T) {
	l, _, _ := newTestLauncher(t, &spawn.Direct{})

	p, err := l.RunArgs([]string{"printenv", "WINEPREFIX"}, Options{RedirectStdout: true})
	if err != nil {
		t.Fatalf("RunArgs failed: %v", err)
	}
	out, err := p.Output()
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if strings.TrimSpace(string(out)) != l.Settings().Wine.Prefix {
		t.Errorf("Expected WINEPREFIX %s, got %q", l.Settings().Wine.Prefix, out)
	}
}

func TestRunExtraEnvWins(t *testing.T) {
	l, _, _ := newTestLauncher(t, &spawn.Direct{})

	p, err := l.Run("printenv DXVK_HUD", Options{
		RedirectStdout: true,
		Env:            map[string]string{"DXVK_HUD": "full"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	out, _ := p.Output()
	if strings.TrimSpace(string(out)) != "full" {
		t.Errorf("Expected caller override, got %q", out)
	}
}

func TestRunSplitsQuotedString(t *testing.T) {
	l, rt, _ := newTestLauncher(t, &spawn.Direct{})

	p, err := l.Run(`winedbg --command "info proc"`, Options{RedirectStdout: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := p.Output(); err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	calls := rt.Calls()
	if len(calls) != 1 || calls[0] != "winedbg --command info proc" {
		t.Errorf("Unexpected calls %q", calls)
	}
}

func TestRunKeepsWindowsArguments(t *testing.T) {
	l, _, _ := newTestLauncher(t, &spawn.Direct{})

	p, err := l.Run(`reg add HKCU\Software\Wine\DllOverrides /v price /d $5 /f`, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(l.Settings().Wine.Prefix, "reg.log"))
	if err != nil {
		t.Fatal(err)
	}
	want := `add HKCU\Software\Wine\DllOverrides /v price /d $5 /f`
	if strings.TrimSpace(string(b)) != want {
		t.Errorf("Guest saw %q, want %q", strings.TrimSpace(string(b)), want)
	}
}

func TestRunEmptyCommand(t *testing.T) {
	l, _, _ := newTestLauncher(t, &spawn.Direct{})
	if _, err := l.Run("   ", Options{}); !errors.Is(err, common.ErrLaunch) {
		t.Errorf("Expected ErrLaunch, got %v", err)
	}
}

func TestStderrGoesToSink(t *testing.T) {
	l, _, log := newTestLauncher(t, &spawn.Direct{})

	p, err := l.RunArgs([]string{"reg", "add", "key"}, Options{})
	if err != nil {
		t.Fatalf("RunArgs failed: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !strings.Contains(log.String(), "fakewine: reg add key") {
		t.Errorf("Expected stderr in log sink, got %q", log.String())
	}
	if p.Stdout() != nil {
		t.Errorf("Stdout should be nil when not redirected")
	}
	if _, err := p.Output(); err == nil {
		t.Errorf("Output should fail without redirected stdout")
	}
}

func TestWorkingDirectory(t *testing.T) {
	l, _, _ := newTestLauncher(t, &spawn.Direct{})
	work := t.TempDir()

	p, err := l.RunArgs([]string{"pwd"}, Options{Dir: work, RedirectStdout: true})
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Output()
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	got := strings.TrimSpace(string(out))
	resolved, _ := filepath.EvalSymlinks(work)
	if got != work && got != resolved {
		t.Errorf("Expected working dir %s, got %s", work, got)
	}
}

func TestMissingBinary(t *testing.T) {
	s := testSettings()
	s.Wine.StartupType = config.StartupCustom
	s.Wine.CustomBinPath = filepath.Join(t.TempDir(), "nowhere")
	l := New(s, logsink.New(&bytes.Buffer{}), &spawn.Direct{})

	_, err := l.RunArgs([]string{"winecfg"}, Options{})
	if !errors.Is(err, common.ErrLaunch) {
		t.Errorf("Expected ErrLaunch, got %v", err)
	}
}

func TestKillDetached(t *testing.T) {
	l, _, _ := newTestLauncher(t, &spawn.Direct{})

	p, err := l.RunArgs([]string{"sleep", "30"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Pid() <= 0 {
		t.Errorf("Expected a host pid, got %d", p.Pid())
	}
	if err := p.Kill(); err != nil {
		t.Fatalf("Kill failed: %v", err)
	}
	if err := p.Wait(); err == nil {
		t.Errorf("Expected killed process to report an error")
	}
}

func TestSandboxedLaunchPreservesEnv(t *testing.T) {
	broker := filepath.Join(t.TempDir(), "flatpak-spawn")
	script := `#!/bin/sh
shift
while [ $# -gt 0 ]; do
  case "$1" in
    --directory=*) cd "${1#--directory=}" ;;
    --env=*) export "${1#--env=}" ;;
    *) break ;;
  esac
  shift
done
exec "$@"
`
	if err := os.WriteFile(broker, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	l, _, _ := newTestLauncher(t, &spawn.Host{Broker: broker})
	p, err := l.RunArgs([]string{"printenv", MarkerVar}, Options{RedirectStdout: true})
	if err != nil {
		t.Fatalf("RunArgs failed: %v", err)
	}
	out, err := p.Output()
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if strings.TrimSpace(string(out)) != "true" {
		t.Errorf("Expected marker through broker, got %q", out)
	}
}
