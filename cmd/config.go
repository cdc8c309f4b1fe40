package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/resume-analyzer/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// applyProfile overlays profiles.<name> onto the decoded config. Only the
// keys present in the profile are changed.
func applyProfile(config *Config) error {
	name := strings.ToLower(strings.TrimSpace(config.Profile))
	if name == "" {
		return nil
	}

	profile, ok := config.Profiles[name]
	if !ok {
		known := make([]string, 0, len(config.Profiles))
		for k := range config.Profiles {
			known = append(known, k)
		}
		sort.Strings(known)
		return apperr.NewConfiguration(
			fmt.Sprintf("unknown profile %q (known: %s)", config.Profile, strings.Join(known, ", ")), nil)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           config,
	})
	if err != nil {
		return fmt.Errorf("creating profile decoder: %w", err)
	}

	if err := decoder.Decode(profile); err != nil {
		return apperr.NewConfiguration(fmt.Sprintf("applying profile %q", name), err)
	}

	return nil
}

func validateConfig(config *Config) error {
	for _, target := range []any{config.AI, config.Pipeline, config.Server} {
		if err := validate.Struct(target); err != nil {
			return apperr.NewConfiguration("invalid configuration", describeValidation(err))
		}
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
