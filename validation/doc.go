// Package validation validates configuration structs using struct tags
// (go-playground/validator) and reports failures as errors.AppError values
// with one FieldError per offending field.
//
//	type RouteConfig struct {
//	    Pattern string `mapstructure:"pattern" validate:"required"`
//	    Match   string `mapstructure:"match" validate:"oneof=contains prefix regex"`
//	}
//	err := validation.Validate(route)
package validation
