// Package validation checks struct tags with go-playground/validator and
// turns failures into INVALID_INPUT application errors.
//
//	type GenerationConfig struct {
//	    StreamTimeout time.Duration `mapstructure:"stream_timeout" validate:"gt=0"`
//	}
//	err := validation.Validate(cfg)
//
// Field names in messages follow the mapstructure tag, then the json tag,
// then the snake_cased Go name.
package validation
