// Package spawn turns a process request into an *exec.Cmd for the host.
//
// Two strategies exist. Direct starts the executable as a child of this
// process. Host routes the start through the flatpak-spawn broker so that,
// from inside a sandbox, the runtime still runs on the real host; the argument
// list, working directory and environment are forwarded as broker flags.
package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"xlcompat/pkg/common"
)

// DefaultBroker is the host-spawn broker used by Host.
const DefaultBroker = "flatpak-spawn"

// Request describes one process to start.
type Request struct {
	// Executable is the absolute path of the binary on the host.
	Executable string
	// Args excludes argv0.
	Args []string
	// Env holds variables set on top of the host environment.
	Env map[string]string
	// Dir is the working directory, empty for the current one.
	Dir string
}

// Spawner builds the host command for a Request.
type Spawner interface {
	Command(req Request) *exec.Cmd
}

// ForMode returns the Spawner for a configured spawn mode.
func ForMode(mode common.SpawnMode) Spawner {
	if mode == common.SpawnSandboxed {
		return &Host{}
	}
	return &Direct{}
}

// Direct starts the executable itself.
// Immutable
type Direct struct {
	// Environ returns the base environment as "KEY=VALUE" strings.
	// When nil, os.Environ() is used.
	Environ func() []string
}

func (d *Direct) Command(req Request) *exec.Cmd {
	environ := os.Environ
	if d.Environ != nil {
		environ = d.Environ
	}

	envs := make(map[string]string)
	for _, env := range environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) == 2 {
			envs[pair[0]] = pair[1]
		}
	}
	for k, v := range req.Env {
		envs[k] = v
	}

	cmd := exec.Command(req.Executable, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = EnvSlice(envs)
	return cmd
}

// Host re-invokes the executable on the host through a broker.
// Immutable
type Host struct {
	// Broker is the broker binary, DefaultBroker when empty.
	Broker string
}

func (h *Host) Command(req Request) *exec.Cmd {
	broker := h.Broker
	if broker == "" {
		broker = DefaultBroker
	}
	return exec.Command(broker, h.Args(req)...)
}

// Args returns the broker argument list for req.
func (h *Host) Args(req Request) []string {
	args := []string{"--host"}
	if req.Dir != "" {
		args = append(args, "--directory="+req.Dir)
	}
	for _, k := range sortedKeys(req.Env) {
		args = append(args, fmt.Sprintf("--env=%s=%s", k, req.Env[k]))
	}
	args = append(args, req.Executable)
	return append(args, req.Args...)
}

// EnvSlice renders envs as sorted "KEY=VALUE" strings.
func EnvSlice(envs map[string]string) []string {
	res := make([]string, 0, len(envs))
	for _, k := range sortedKeys(envs) {
		res = append(res, k+"="+envs[k])
	}
	return res
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
