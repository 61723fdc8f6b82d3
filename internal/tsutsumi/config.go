package tsutsumi

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// Config struct
type Config struct {
	Values map[string]string
}

// LoadConfig reads tsutsumi.conf from the project directory, falling back
// to /etc/tsutsumi.conf, and applies TSUTSUMI_* env overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// Attempt to read the file
	file, err := os.Open(configSearchPath(path))
	if err != nil {
		file, err = os.Open(FallbackConf)
	}
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	mergeEnvOverrides(cfg)
	return cfg, nil
}

// configSearchPath anchors a relative config filename at the project
// directory. Only the TSUTSUMI_PROJECT_DIR environment variable can
// steer this: the config file cannot name its own location.
func configSearchPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if root := os.Getenv("TSUTSUMI_PROJECT_DIR"); root != "" {
		return filepath.Join(root, path)
	}
	return path
}

// Merge TSUTSUMI_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "TSUTSUMI_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

// get returns the config value for key or def when unset/empty.
func (cfg *Config) get(key, def string) string {
	if v := cfg.Values[key]; v != "" {
		return v
	}
	return def
}

// InitConfig resolves the global paths and commands from the loaded
// config. The defaults match the conventional PyInstaller project
// layout: dist, build, requirements.txt, app.spec.
func InitConfig(cfg *Config) {
	projectDir = cfg.get("TSUTSUMI_PROJECT_DIR", ".")
	if abs, err := filepath.Abs(projectDir); err == nil {
		projectDir = abs
	}

	OutputDir = resolvePath(cfg.get("TSUTSUMI_OUTPUT_DIR", "dist"))
	WorkDir = resolvePath(cfg.get("TSUTSUMI_WORK_DIR", "build"))
	LogDir = resolvePath(cfg.get("TSUTSUMI_LOG_DIR", filepath.Join(WorkDir, "logs")))
	ManifestFile = resolvePath(cfg.get("TSUTSUMI_MANIFEST", "requirements.txt"))
	SpecFile = resolvePath(cfg.get("TSUTSUMI_SPEC_FILE", "app.spec"))

	AppName = cfg.Values["TSUTSUMI_APP_NAME"]
	if AppName == "" {
		base := filepath.Base(SpecFile)
		AppName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	ArtifactPath = filepath.Join(OutputDir, AppName)

	InstallerCmd = cfg.get("TSUTSUMI_INSTALLER", "pip install -r {manifest}")
	BundlerCmd = cfg.get("TSUTSUMI_BUNDLER", "pyinstaller --clean --noconfirm {spec}")
	S3Prefix = strings.Trim(cfg.Values["TSUTSUMI_S3_PREFIX"], "/")

	Debug = cfg.Values["TSUTSUMI_DEBUG"] == "1"
	NoColor = cfg.Values["TSUTSUMI_NO_COLOR"] == "1" || os.Getenv("NO_COLOR") != ""
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		NoColor = true
	}
	if NoColor {
		color.Disable()
	}
}

// resolvePath anchors relative config paths at the project directory.
func resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}
