package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend       string `json:"backend" yaml:"backend" mapstructure:"backend" validate:"required,oneof=sqlite"`
	DataDir       string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	BusyTimeoutMS int    `json:"busy_timeout_ms,omitempty" yaml:"busy_timeout_ms,omitempty" mapstructure:"busy_timeout_ms" validate:"gte=0,lte=600000"`
	JournalMode   string `json:"journal_mode,omitempty" yaml:"journal_mode,omitempty" mapstructure:"journal_mode" validate:"omitempty,oneof=wal delete truncate memory"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrInvalidConfig  = errors.New("invalid config")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, fe := range verrs {
		if fe.Field() == "Backend" {
			if fe.Tag() == "required" {
				return ErrBackendEmpty
			}
			return ErrBackendUnknown
		}
	}
	fe := verrs[0]
	return fmt.Errorf("%w: %s fails %q", ErrInvalidConfig, fe.Field(), fe.Tag())
}
