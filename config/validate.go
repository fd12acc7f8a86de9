package config

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"go.viam.com/tapevision/telemetry"
)

// ConfigError reports a missing or invalid field. Field is a dotted path such as
// cameras.0.path; it is empty when the document as a whole is wrong.
//
//nolint:revive
type ConfigError struct {
	Path   string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	if e.Field == "" {
		return fmt.Sprintf("config error in %q: %s", e.Path, reason)
	}
	return fmt.Sprintf("config error in %q: %q %s", e.Path, e.Field, reason)
}

func fieldRequired(path, field string) error {
	return &ConfigError{Path: path, Field: field}
}

func fieldInvalid(path, field, reason string) error {
	return &ConfigError{Path: path, Field: field, Reason: reason}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the fields Read cannot default. path names the file in errors.
func (c *Config) Validate(path string) error {
	switch NTMode(strings.ToLower(string(c.NTMode))) {
	case "", NTClient, NTServer:
	default:
		return fieldInvalid(path, "ntmode", fmt.Sprintf("must be %q or %q, got %q", NTClient, NTServer, c.NTMode))
	}
	if len(c.Cameras) == 0 {
		return fieldRequired(path, "cameras")
	}
	for i, cc := range c.Cameras {
		if err := cc.Validate(path, fmt.Sprintf("cameras.%d", i)); err != nil {
			return err
		}
	}
	if _, err := telemetry.ParseGapPolicy(c.Vision.GapPolicy); err != nil {
		return fieldInvalid(path, "vision.gap_policy", err.Error())
	}
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fieldInvalid(path, "log.level", err.Error())
		}
	}
	if err := validate.Struct(c); err != nil {
		return fromValidationError(path, err)
	}
	return nil
}

// Validate checks one camera entry; field is its path within the document.
func (cc *CameraConfig) Validate(path, field string) error {
	if cc.Name == "" {
		return fieldRequired(path, field+".name")
	}
	if cc.Path == "" {
		return fieldRequired(path, field+".path")
	}
	if !validShorthand(cc.WhiteBalance) {
		return fieldInvalid(path, field+".white balance", `must be "auto", "hold" or a number`)
	}
	if !validShorthand(cc.Exposure) {
		return fieldInvalid(path, field+".exposure", `must be "auto", "hold" or a number`)
	}
	return nil
}

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

var tagMeaning = map[string]string{
	"gte": ">=",
	"lte": "<=",
	"gt":  ">",
	"lt":  "<",
}

func fromValidationError(path string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigError{Path: path, Reason: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	field = indexPattern.ReplaceAllString(field, ".$1")
	reason := fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	if op, ok := tagMeaning[fe.Tag()]; ok {
		reason = fmt.Sprintf("must be %s %s, got %v", op, fe.Param(), fe.Value())
	}
	return fieldInvalid(path, field, reason)
}
