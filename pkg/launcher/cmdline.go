package launcher

import "strings"

// SplitCommandLine splits a Windows style command line into arguments the
// way the MSVC runtime does:
//
//   - spaces and tabs outside double quotes separate arguments
//   - a double quote toggles quoting and is removed; "" inside quotes is a literal quote
//   - 2n backslashes before a quote become n backslashes and the quote toggles,
//     2n+1 become n backslashes and a literal quote
//   - any other backslash is literal
//
// Nothing is expanded. An unterminated quote runs to the end of the line.
func SplitCommandLine(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quoted  bool
		slashes int
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\':
			slashes++
			inArg = true

		case c == '"':
			cur.WriteString(strings.Repeat(`\`, slashes/2))
			escaped := slashes%2 == 1
			slashes = 0
			inArg = true
			switch {
			case escaped:
				cur.WriteByte('"')
			case quoted && i+1 < len(line) && line[i+1] == '"':
				cur.WriteByte('"')
				i++
			default:
				quoted = !quoted
			}

		case (c == ' ' || c == '\t') && !quoted:
			cur.WriteString(strings.Repeat(`\`, slashes))
			slashes = 0
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}

		default:
			cur.WriteString(strings.Repeat(`\`, slashes))
			slashes = 0
			cur.WriteByte(c)
			inArg = true
		}
	}

	cur.WriteString(strings.Repeat(`\`, slashes))
	if inArg {
		args = append(args, cur.String())
	}
	return args
}
