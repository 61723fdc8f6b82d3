package tsutsumi

import (
	"fmt"
	"strings"
)

// expandCommand splits a configured command line into argv form and
// substitutes the {manifest} and {spec} placeholders. Substitution
// happens per token, after splitting, so a configured path containing
// spaces stays a single argument.
func expandCommand(cmdline string) ([]string, error) {
	argv, err := splitCommand(cmdline)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command line: %q", cmdline)
	}

	replacer := strings.NewReplacer(
		"{manifest}", ManifestFile,
		"{spec}", SpecFile,
		"{output}", OutputDir,
		"{workdir}", WorkDir,
	)
	for i, tok := range argv {
		argv[i] = replacer.Replace(tok)
	}
	return argv, nil
}

// splitCommand splits a command line on whitespace, honoring single and
// double quotes so paths with spaces survive.
func splitCommand(s string) ([]string, error) {
	var argv []string
	var cur strings.Builder
	var quote rune
	inToken := false

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				argv = append(argv, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", s)
	}
	if inToken {
		argv = append(argv, cur.String())
	}
	return argv, nil
}
