package inspector

import (
	"strconv"
	"strings"
)

// GuestPID is a process id from the runtime's own process table.
type GuestPID uint32

// HostPID is a process id as seen by the host kernel. Zero means not found.
type HostPID int

// syntaxError is what winedbg prints when it does not know a command.
const syntaxError = "syntax error\n"

// ParseProcessList returns the guest pids of the `info proc` lines that
// contain name, in output order. Lines whose first column is not a
// hexadecimal pid are skipped.
func ParseProcessList(output, name string) []GuestPID {
	var pids []GuestPID
	for _, line := range lines(output) {
		if !strings.Contains(line, name) {
			continue
		}
		cols := columns(line)
		if len(cols) == 0 {
			continue
		}
		pid, ok := parseHex(cols[0])
		if !ok {
			continue
		}
		pids = append(pids, GuestPID(pid))
	}
	return pids
}

// ParseProcessMap looks guest up in `info procmap` output and returns its
// host pid. The first line is a header. Both "no such row" and a winedbg
// syntax error yield 0.
func ParseProcessMap(output string, guest GuestPID) HostPID {
	if strings.Contains(output, syntaxError) {
		return 0
	}

	rows := lines(output)
	if len(rows) > 0 {
		rows = rows[1:]
	}
	for _, row := range rows {
		cols := columns(row)
		if len(cols) < 2 {
			continue
		}
		g, ok := parseHex(cols[0])
		if !ok || GuestPID(g) != guest {
			continue
		}
		h, ok := parseHex(cols[1])
		if !ok {
			continue
		}
		return HostPID(h)
	}
	return 0
}

// lines splits output into its non-empty lines.
func lines(output string) []string {
	var res []string
	for _, l := range strings.Split(output, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		res = append(res, l)
	}
	return res
}

// columns splits a table row, dropping the indent and the '>' winedbg
// puts in front of the process it is attached to.
func columns(line string) []string {
	return strings.Fields(strings.TrimLeft(line, " \t>"))
}

// parseHex parses a pid column: one to eight hex digits.
func parseHex(col string) (uint32, bool) {
	if len(col) == 0 || len(col) > 8 {
		return 0, false
	}
	v, err := strconv.ParseUint(col, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
