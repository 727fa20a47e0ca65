package inspector

import (
	"slices"
	"testing"
)

func TestParseProcessList(t *testing.T) {
	out := "01234567 4 notepad.exe\n89abcdef 8 other.exe\n"
	got := ParseProcessList(out, "notepad")
	if !slices.Equal(got, []GuestPID{0x01234567}) {
		t.Errorf("Expected [0x01234567], got %x", got)
	}
}

func TestParseProcessListWinedbgLayout(t *testing.T) {
	out := ` pid      threads  executable (all id:s are in hex)
 00000020 9        'start.exe'
 00000038 3        \_ 'ffxiv_dx11.exe'
>0000003c 1        \_ 'winedbg.exe'
 00000040 2        \_ 'ffxiv_dx11.exe'
garbage line mentioning ffxiv_dx11.exe
 zzzzzzzz 1        'ffxiv_dx11.exe'
`
	got := ParseProcessList(out, "ffxiv_dx11.exe")
	want := []GuestPID{0x38, 0x40}
	if !slices.Equal(got, want) {
		t.Errorf("Expected %x, got %x", want, got)
	}

	if got := ParseProcessList(out, "winedbg"); !slices.Equal(got, []GuestPID{0x3c}) {
		t.Errorf("Expected current process marker to be stripped, got %x", got)
	}
}

func TestParseProcessListKeepsDuplicatesAndOrder(t *testing.T) {
	out := "00000010 1 game.exe\n00000008 1 game.exe\n00000010 1 game.exe\n"
	want := []GuestPID{0x10, 0x8, 0x10}
	if got := ParseProcessList(out, "game"); !slices.Equal(got, want) {
		t.Errorf("Expected %x, got %x", want, got)
	}
}

func TestParseProcessListEmpty(t *testing.T) {
	if got := ParseProcessList("", "game"); len(got) != 0 {
		t.Errorf("Expected no pids, got %x", got)
	}
	if got := ParseProcessList("syntax error\n", "syntax"); len(got) != 0 {
		t.Errorf("Expected syntax error line to be skipped, got %x", got)
	}
}

func TestParseProcessMap(t *testing.T) {
	out := "guest    host\n01234567 fedcba98\n"
	if got := ParseProcessMap(out, 0x01234567); got != 0xfedcba98 {
		t.Errorf("Expected 0xfedcba98, got %#x", got)
	}
	if got := ParseProcessMap(out, 0); got != 0 {
		t.Errorf("Expected 0 for unknown guest, got %#x", got)
	}
}

func TestParseProcessMapEdgeCases(t *testing.T) {
	cases := []struct {
		name   string
		output string
		guest  GuestPID
		want   HostPID
	}{
		{"syntax error", "Wine-dbg>syntax error\n", 0x20, 0},
		{"header only", " pid      unix pid\n", 0x20, 0},
		{"header row never matches", "00000020 00001000\n00000020 00002000\n", 0x20, 0x2000},
		{"first matching row wins", "hdr\n00000020 00001000\n00000020 00002000\n", 0x20, 0x1000},
		{"short rows skipped", "hdr\n00000020\n00000020 0000abcd\n", 0x20, 0xabcd},
		{"bad host column skipped", "hdr\n00000020 nothex!!\n00000020 00000042\n", 0x20, 0x42},
		{"crlf rows", "hdr\r\n00000020 00000042\r\n", 0x20, 0x42},
		{"empty", "", 0x20, 0},
	}
	for _, c := range cases {
		if got := ParseProcessMap(c.output, c.guest); got != c.want {
			t.Errorf("%s: want %#x, got %#x", c.name, c.want, got)
		}
	}
}

func TestParseHex(t *testing.T) {
	if v, ok := parseHex("fedcba98"); !ok || v != 0xfedcba98 {
		t.Errorf("Expected fedcba98, got %x %v", v, ok)
	}
	for _, bad := range []string{"", "123456789", "0x12", "pid"} {
		if _, ok := parseHex(bad); ok {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}
