// Package devel holds development helpers. FakeRuntime writes shell script
// stand-ins for the runtime binaries so prefix, launcher and inspector code
// can be exercised without a real runtime installed.
package devel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FakeRuntime is a directory of fake runtime binaries plus the fixture files
// they answer with.
type FakeRuntime struct {
	// BinDir holds wine64 and wineserver.
	BinDir string
	// DataDir holds fixtures and the files the scripts record into.
	DataDir string
}

// Wine64Script returns the body of a fake wine64 answering from dataDir.
//
//	cmd ...            bootstraps $WINEPREFIX (creates drive_c and system.reg)
//	winedbg --command  prints dataDir/info_proc.txt or dataDir/info_procmap.txt
//	winepath --windows prints a warning line, then Z: followed by the path
//	reg ...            appends its arguments to $WINEPREFIX/reg.log
//	printenv NAME      prints one variable
//	pwd                prints the working directory
//	sleep N            becomes sleep(1)
//
// Every invocation writes its arguments to stderr and to dataDir/calls.log.
func Wine64Script(dataDir string) string {
	return fmt.Sprintf(`#!/bin/sh
data=%q
echo "fakewine: $*" >&2
echo "$*" >> "$data/calls.log"
case "$1" in
  cmd)
    mkdir -p "$WINEPREFIX/drive_c/users" && touch "$WINEPREFIX/system.reg" ;;
  winedbg)
    case "$3" in
      "info proc") cat "$data/info_proc.txt" 2>/dev/null ;;
      "info procmap") cat "$data/info_procmap.txt" 2>/dev/null ;;
      *) echo "syntax error" ;;
    esac ;;
  winepath)
    echo "fixme:path:warning from winepath" ; printf 'Z:%%s\n' "$3" ;;
  reg)
    shift ; mkdir -p "$WINEPREFIX" && printf '%%s\n' "$*" >> "$WINEPREFIX/reg.log" ;;
  printenv)
    printenv "$2" ;;
  pwd)
    pwd ;;
  sleep)
    exec sleep "$2" ;;
esac
exit 0
`, dataDir)
}

// WineServerScript returns the body of a fake wineserver. "-k" records the
// prefix it was asked to kill in dataDir/killed.log.
func WineServerScript(dataDir string) string {
	return fmt.Sprintf(`#!/bin/sh
data=%q
if [ "$1" = "-k" ]; then
  echo "$WINEPREFIX" >> "$data/killed.log"
fi
exit 0
`, dataDir)
}

// NewFakeRuntime writes wine64 and wineserver into root/bin and uses
// root/data for fixtures.
func NewFakeRuntime(root string) (*FakeRuntime, error) {
	r := &FakeRuntime{
		BinDir:  filepath.Join(root, "bin"),
		DataDir: filepath.Join(root, "data"),
	}
	for _, dir := range []string{r.BinDir, r.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(filepath.Join(r.BinDir, "wine64"), []byte(Wine64Script(r.DataDir)), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(r.BinDir, "wineserver"), []byte(WineServerScript(r.DataDir)), 0755); err != nil {
		return nil, err
	}
	return r, nil
}

// SetProcessList sets the output of `winedbg --command "info proc"`.
func (r *FakeRuntime) SetProcessList(text string) error {
	return os.WriteFile(filepath.Join(r.DataDir, "info_proc.txt"), []byte(text), 0644)
}

// SetProcessMap sets the output of `winedbg --command "info procmap"`.
func (r *FakeRuntime) SetProcessMap(text string) error {
	return os.WriteFile(filepath.Join(r.DataDir, "info_procmap.txt"), []byte(text), 0644)
}

// Calls returns one line per wine64 invocation, oldest first.
func (r *FakeRuntime) Calls() []string {
	return readLines(filepath.Join(r.DataDir, "calls.log"))
}

// Killed returns the prefixes wineserver -k was run for.
func (r *FakeRuntime) Killed() []string {
	return readLines(filepath.Join(r.DataDir, "killed.log"))
}

func readLines(path string) []string {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.FieldsFunc(string(b), func(r rune) bool { return r == '\n' })
}
