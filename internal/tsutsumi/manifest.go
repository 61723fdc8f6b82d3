package tsutsumi

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Requirement is one entry of the dependency manifest.
type Requirement struct {
	Name string
	Spec string // version constraint as written, e.g. "==2.3.1", may be empty
}

// version specifier operators, longest first so "==" wins over "=".
var specOps = []string{"===", "==", ">=", "<=", "~=", "!=", ">", "<"}

// ParseManifest reads a requirements-style manifest: one dependency per
// line, '#' comments, blank lines ignored, '-r file' includes resolved
// relative to the including manifest. Environment markers after ';' are
// stripped.
func ParseManifest(path string) ([]Requirement, error) {
	return parseManifest(path, make(map[string]bool))
}

func parseManifest(path string, seen map[string]bool) ([]Requirement, error) {
	abs, err := filepath.Abs(path)
	if err == nil {
		if seen[abs] {
			return nil, fmt.Errorf("manifest include cycle at %s", path)
		}
		seen[abs] = true
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest: %w", err)
	}
	defer f.Close()

	var reqs []Requirement
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Inline comments
		if idx := strings.Index(line, " #"); idx != -1 {
			line = strings.TrimSpace(line[:idx])
		}

		// Includes: -r other.txt / --requirement other.txt
		if rest, ok := strings.CutPrefix(line, "-r "); ok {
			included, err := parseManifest(resolveInclude(path, rest), seen)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, included...)
			continue
		}
		if rest, ok := strings.CutPrefix(line, "--requirement "); ok {
			included, err := parseManifest(resolveInclude(path, rest), seen)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, included...)
			continue
		}

		// Other installer options are not dependencies.
		if strings.HasPrefix(line, "-") {
			debugf("skipping manifest option: %s\n", line)
			continue
		}

		// Strip environment markers.
		if idx := strings.Index(line, ";"); idx != -1 {
			line = strings.TrimSpace(line[:idx])
		}

		reqs = append(reqs, splitRequirement(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning manifest: %w", err)
	}
	return reqs, nil
}

func resolveInclude(parent, include string) string {
	include = strings.TrimSpace(include)
	if filepath.IsAbs(include) {
		return include
	}
	return filepath.Join(filepath.Dir(parent), include)
}

func splitRequirement(line string) Requirement {
	for _, op := range specOps {
		if idx := strings.Index(line, op); idx != -1 {
			return Requirement{
				Name: strings.TrimSpace(line[:idx]),
				Spec: strings.TrimSpace(line[idx:]),
			}
		}
	}
	return Requirement{Name: line}
}

// ReportManifest prints a short dependency summary before the install
// step runs.
func ReportManifest(path string) error {
	reqs, err := ParseManifest(path)
	if err != nil {
		return err
	}
	arrow()
	cPrintf(colSuccess, "%d dependencies listed in %s\n", len(reqs), filepath.Base(path))
	if Verbose || Debug {
		for _, r := range reqs {
			fmt.Printf("   %s%s\n", r.Name, r.Spec)
		}
	}
	return nil
}
