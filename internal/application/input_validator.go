package application

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/davarch/deploy-pilot/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	ArgAPIKey       = "api-key"
	ArgSolutionPath = "solution-path"
	ArgPackageName  = "package-name"
	ArgVersion      = "version"
	ArgTimeout      = "timeout"
	ArgStage        = "stage"
	ArgArtifactID   = "artifact-id"
)

var knownArgs = map[string]bool{
	ArgAPIKey: true, ArgSolutionPath: true, ArgPackageName: true, ArgVersion: true,
	ArgTimeout: true, ArgStage: true, ArgArtifactID: true,
}

// MAJOR.MINOR.PATCH, optionally followed by anything (1.2.3.4, 1.2.3-rc1).
var versionFormat = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+`)

type Reason int

const (
	ReasonMissing Reason = iota
	ReasonInvalidStage
	ReasonInvalidTimeout
	ReasonTimeoutTooShort
	ReasonTimeoutTooLong
	ReasonInvalidVersion
)

// ArgumentError is one reason why the arguments were rejected.
type ArgumentError struct {
	Reason Reason
	Key    string
	Value  string
}

func (e *ArgumentError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return fmt.Sprintf("missing argument --%s", e.Key)
	case ReasonInvalidStage:
		return fmt.Sprintf("invalid stage %q (expected %s, %s or %s)", e.Value, domain.StageAll, domain.StageUpload, domain.StageDeploy)
	case ReasonInvalidTimeout:
		return fmt.Sprintf("invalid timeout %q (expected HH:MM)", e.Value)
	case ReasonTimeoutTooShort:
		return fmt.Sprintf("timeout %s is shorter than %s", e.Value, domain.MinTimeout)
	case ReasonTimeoutTooLong:
		return fmt.Sprintf("timeout %s is longer than %s", e.Value, domain.MaxTimeout)
	case ReasonInvalidVersion:
		return fmt.Sprintf("invalid version format %q (expected MAJOR.MINOR.PATCH)", e.Value)
	default:
		return fmt.Sprintf("invalid argument --%s", e.Key)
	}
}

func (e *ArgumentError) Unwrap() error { return domain.ErrInvalidArguments }

type InputValidator struct {
	log            *zap.Logger
	apiKeyFallback string
	defaultTimeout time.Duration
}

// NewInputValidator returns a validator. apiKeyFallback is used when no
// --api-key is given; defaultTimeout when no --timeout is given.
func NewInputValidator(log *zap.Logger, apiKeyFallback string, defaultTimeout time.Duration) *InputValidator {
	return &InputValidator{log: log, apiKeyFallback: apiKeyFallback, defaultTimeout: defaultTimeout}
}

// Validate turns raw "--key value" tokens into a Configuration. On failure
// the returned error combines every ArgumentError found; split it with
// multierr.Errors.
func (v *InputValidator) Validate(args []string) (domain.Configuration, error) {
	in := v.tokenize(args)

	var cfg domain.Configuration

	rawStage, ok := in[ArgStage]
	if !ok {
		return domain.Configuration{}, &ArgumentError{Reason: ReasonMissing, Key: ArgStage}
	}
	stage, ok := domain.ParseStage(rawStage)
	if !ok {
		return domain.Configuration{}, &ArgumentError{Reason: ReasonInvalidStage, Key: ArgStage, Value: rawStage}
	}
	cfg.Stage = stage

	cfg.APIKey = in[ArgAPIKey]
	if cfg.APIKey == "" {
		cfg.APIKey = v.apiKeyFallback
	}
	if cfg.APIKey == "" {
		return domain.Configuration{}, &ArgumentError{Reason: ReasonMissing, Key: ArgAPIKey}
	}

	cfg.Timeout = v.defaultTimeout
	if raw, ok := in[ArgTimeout]; ok {
		d, err := parseTimeout(raw)
		if err != nil {
			return domain.Configuration{}, err
		}
		cfg.Timeout = d
	}

	var errs error
	need := func(key string) string {
		val, ok := in[key]
		if !ok {
			errs = multierr.Append(errs, &ArgumentError{Reason: ReasonMissing, Key: key})
		}
		return val
	}

	switch stage {
	case domain.StageAll, domain.StageUpload:
		cfg.SolutionPath = need(ArgSolutionPath)
		cfg.PackageName = need(ArgPackageName)
		cfg.Version = need(ArgVersion)
		if cfg.Version != "" {
			v.checkVersion(cfg.Version, &errs)
		}
		v.ignored(in, ArgArtifactID)
	case domain.StageDeploy:
		cfg.ArtifactID = need(ArgArtifactID)
		v.ignored(in, ArgSolutionPath, ArgPackageName, ArgVersion)
	}

	if errs != nil {
		return domain.Configuration{}, errs
	}
	return cfg, nil
}

// tokenize collects "--key value" pairs. Empty values are dropped so that
// they count as missing.
func (v *InputValidator) tokenize(args []string) map[string]string {
	out := make(map[string]string, len(args)/2)

	for i := 0; i < len(args); i++ {
		tok := args[i]
		if !strings.HasPrefix(tok, "--") {
			v.log.Warn("ignoring stray argument", zap.String("token", tok))
			continue
		}

		key := strings.TrimPrefix(tok, "--")
		val := ""
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			val = strings.TrimSpace(args[i+1])
			i++
		}

		if !knownArgs[key] {
			v.log.Warn("ignoring unknown argument", zap.String("key", key))
			continue
		}
		if _, dup := out[key]; dup {
			v.log.Warn("argument given more than once, last value wins", zap.String("key", key))
		}
		if val == "" {
			delete(out, key)
			continue
		}
		out[key] = val
	}

	return out
}

func (v *InputValidator) checkVersion(version string, errs *error) {
	if !versionFormat.MatchString(version) {
		*errs = multierr.Append(*errs, &ArgumentError{Reason: ReasonInvalidVersion, Key: ArgVersion, Value: version})
		return
	}
	if _, err := semver.StrictNewVersion(version); err != nil {
		v.log.Warn("version is not strict semver, catalog uses it verbatim",
			zap.String("version", version), zap.Error(err))
	}
}

func (v *InputValidator) ignored(in map[string]string, keys ...string) {
	for _, k := range keys {
		if _, ok := in[k]; ok {
			v.log.Warn("argument not used by this stage", zap.String("key", k), zap.String("stage", in[ArgStage]))
		}
	}
}

// parseTimeout reads an HH:MM duration and checks it against the allowed
// range.
func parseTimeout(raw string) (time.Duration, error) {
	invalid := &ArgumentError{Reason: ReasonInvalidTimeout, Key: ArgTimeout, Value: raw}

	hh, mm, ok := strings.Cut(raw, ":")
	if !ok || !digits(hh) || !digits(mm) || len(mm) != 2 {
		return 0, invalid
	}
	// more than two significant hour digits is always above the cap
	if len(strings.TrimLeft(hh, "0")) > 2 {
		return 0, &ArgumentError{Reason: ReasonTimeoutTooLong, Key: ArgTimeout, Value: raw}
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if m > 59 {
		return 0, invalid
	}

	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	switch {
	case d < domain.MinTimeout:
		return 0, &ArgumentError{Reason: ReasonTimeoutTooShort, Key: ArgTimeout, Value: raw}
	case d > domain.MaxTimeout:
		return 0, &ArgumentError{Reason: ReasonTimeoutTooLong, Key: ArgTimeout, Value: raw}
	}
	return d, nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
