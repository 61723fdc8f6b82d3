package tsutsumi

import (
	"errors"

	"github.com/gookit/color"
)

// Global variables
var (
	projectDir   string
	OutputDir    string
	WorkDir      string
	LogDir       string
	ManifestFile string
	SpecFile     string
	AppName      string
	ArtifactPath string
	InstallerCmd string
	BundlerCmd   string
	S3Prefix     string
	Debug        bool
	Verbose      bool
	NoColor      bool
	ConfigFile   = "tsutsumi.conf"
	FallbackConf = "/etc/tsutsumi.conf"
	LockName     = ".tsutsumi.lock"
	version      = "dev"     // overridden at build time
	buildDate    = "unknown" // overridden at build time

	errNoArtifact  = errors.New("artifact not found")
	errLockHeld    = errors.New("another build is already running in this project")
	errStepFailed  = errors.New("build step failed")
	errNoArchive   = errors.New("no distribution archive found")
	errNoSumsFile  = errors.New("checksum file not found")
	errSumMismatch = errors.New("checksum mismatch")

	// Global executor (assigned in main)
	Exec *Executor
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
