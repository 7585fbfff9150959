package core

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Exit codes for the application.
// Signal-based exits follow the Unix 128 + signal number convention.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeSIGINT  = 130
	ExitCodeSIGTERM = 143
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// CheckStatus is the outcome of one startup check.
type CheckStatus int

const (
	CheckPassed CheckStatus = iota
	CheckFailed
	CheckWarning
)

// String returns the string representation of a check status.
func (s CheckStatus) String() string {
	switch s {
	case CheckPassed:
		return "passed"
	case CheckFailed:
		return "failed"
	case CheckWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// CheckResult records one line of the startup checklist.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Error   error
}

// StartupReport is the outcome of StartupCheck.Run.
type StartupReport struct {
	Results  []CheckResult
	Config   *Config
	Duration time.Duration
}

// Success reports whether no check failed.
func (r StartupReport) Success() bool {
	for _, res := range r.Results {
		if res.Status == CheckFailed {
			return false
		}
	}
	return true
}

// FirstError returns the error of the first failed check, if any.
func (r StartupReport) FirstError() error {
	for _, res := range r.Results {
		if res.Status == CheckFailed {
			return res.Error
		}
	}
	return nil
}

// StartupCheck loads configuration and prints a colored checklist of the
// settings the studio depends on before the server starts.
type StartupCheck struct {
	output   io.Writer
	envPath  string
	loadFunc func() (*Config, error)
}

// NewStartupCheck creates a StartupCheck writing to stdout.
func NewStartupCheck() *StartupCheck {
	return &StartupCheck{
		output:   os.Stdout,
		envPath:  ".env",
		loadFunc: LoadConfig,
	}
}

// WithOutput sets the writer for the checklist.
func (s *StartupCheck) WithOutput(w io.Writer) *StartupCheck {
	s.output = w
	return s
}

// WithEnvPath sets the .env path reported by the checklist.
func (s *StartupCheck) WithEnvPath(path string) *StartupCheck {
	s.envPath = path
	return s
}

// Run performs the checks. The returned Config is nil when loading failed.
func (s *StartupCheck) Run() StartupReport {
	start := time.Now()
	report := StartupReport{}

	s.printHeader("Spooktrunt Startup Check")

	if _, err := os.Stat(s.envPath); err != nil {
		report.Results = append(report.Results, s.record(CheckResult{
			Name:    "Environment File",
			Status:  CheckWarning,
			Message: fmt.Sprintf("%s not found, using process environment", s.envPath),
		}))
	} else {
		report.Results = append(report.Results, s.record(CheckResult{
			Name:    "Environment File",
			Status:  CheckPassed,
			Message: s.envPath,
		}))
	}

	cfg, err := s.loadFunc()
	if err != nil {
		name := "Configuration"
		if GetErrorCode(err) == ErrCodeMissingAuth {
			name = "API Credentials"
		}
		report.Results = append(report.Results, s.record(CheckResult{
			Name:   name,
			Status: CheckFailed,
			Error:  err,
		}))
		report.Duration = time.Since(start)
		return report
	}
	report.Config = cfg

	report.Results = append(report.Results,
		s.record(CheckResult{Name: "API Credentials", Status: CheckPassed, Message: "present for selected providers"}),
		s.record(CheckResult{Name: "Text Provider", Status: CheckPassed, Message: describeModel(cfg.TextProvider, cfg.TextModel)}),
		s.record(CheckResult{Name: "Image Provider", Status: CheckPassed, Message: describeModel(cfg.ImageProvider, cfg.ImageModel)}),
	)

	if cfg.AllowSelfSignedCerts {
		report.Results = append(report.Results, s.record(CheckResult{
			Name:    "TLS Verification",
			Status:  CheckWarning,
			Message: "disabled by ALLOW_SELF_SIGNED_CERTS",
		}))
	}

	report.Duration = time.Since(start)
	return report
}

func describeModel(provider, model string) string {
	if model == "" {
		return provider + " (default model)"
	}
	return provider + " / " + model
}

func (s *StartupCheck) printHeader(title string) {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

// record prints a result line and returns it unchanged.
func (s *StartupCheck) record(res CheckResult) CheckResult {
	var icon string
	var clr *color.Color

	switch res.Status {
	case CheckPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case CheckFailed:
		icon, clr = "✗", color.New(color.FgRed)
	case CheckWarning:
		icon, clr = "!", color.New(color.FgYellow)
	default:
		icon, clr = "?", color.New(color.FgWhite)
	}

	clr.Fprintf(s.output, "  %s %s", icon, res.Name)
	if res.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", res.Message)
	}
	fmt.Fprintln(s.output)

	if res.Status == CheckFailed && res.Error != nil {
		color.New(color.FgRed).Fprintf(s.output, "    └─ %s\n", res.Error.Error())
	}
	return res
}
