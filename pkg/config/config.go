// Package config loads configuration structs from YAML files and
// environment variables using `env`, `yaml`, `default` and `required`
// struct tags.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator allows config structs to implement custom validation logic.
// When the destination type implements it, validation runs automatically
// after the struct has been populated.
type Validator interface {
	Validate() error
}

// Load populates dest from the YAML file at path (optional) and then
// overlays environment variables. Fields still unset after both passes
// receive their `default` tag; `required` fields without a value fail.
//
//	var cfg AppConfig
//	err := config.Load(&cfg, "config.yaml", true)
func Load[T any](dest *T, path string, allowFileErrors bool) error {
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err != nil && !allowFileErrors:
			return fmt.Errorf("failed to read file: %w", err)
		case err == nil:
			if err := yaml.Unmarshal(data, dest); err != nil {
				if !allowFileErrors {
					return fmt.Errorf("failed to unmarshal YAML: %w", err)
				}
			}
		}
	}
	return FromEnv(dest)
}

// FromEnv populates dest from environment variables only.
func FromEnv[T any](dest *T) error {
	val := reflect.ValueOf(dest).Elem()

	fromEnv, err := overlayEnv(val, val.Type())
	if err != nil {
		return err
	}
	if err := applyDefaults(val, val.Type(), fromEnv); err != nil {
		// Reset to zero so a half-populated config cannot leak out.
		val.Set(reflect.Zero(val.Type()))
		return err
	}

	if validator, ok := any(dest).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// overlayEnv walks the struct and sets every field that has an `env` tag
// with a non-empty environment value. It returns the set of fields
// (keyed by struct type + field name) that came from the environment.
func overlayEnv(val reflect.Value, typ reflect.Type) (map[string]bool, error) {
	fromEnv := make(map[string]bool)

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			nested, err := overlayEnv(field, fieldType.Type)
			if err != nil {
				return nil, err
			}
			for k, v := range nested {
				fromEnv[k] = v
			}
			continue
		}

		tag := fieldType.Tag.Get("env")
		if tag == "" {
			continue
		}
		envVal := os.Getenv(tag)
		if envVal == "" {
			continue
		}
		if err := setField(field, envVal); err != nil {
			return nil, fmt.Errorf("env %s: %w", tag, err)
		}
		fromEnv[typ.Name()+"."+fieldType.Name] = true
	}
	return fromEnv, nil
}

// applyDefaults fills `default` tags into zero fields that were not set
// from the environment and reports missing `required` fields. All
// problems are aggregated into a single multierror.
func applyDefaults(val reflect.Value, typ reflect.Type, fromEnv map[string]bool) error {
	var result error

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyDefaults(field, fieldType.Type, fromEnv); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		defaultTag := fieldType.Tag.Get("default")
		required := strings.EqualFold(fieldType.Tag.Get("required"), "true")
		if required && defaultTag != "" {
			// A default always satisfies the requirement.
			required = false
		}

		if field.IsZero() && required {
			result = multierror.Append(result, fmt.Errorf(
				"required field env:%s / yaml:%s is missing",
				fieldType.Tag.Get("env"), fieldType.Tag.Get("yaml")))
			continue
		}

		key := typ.Name() + "." + fieldType.Name
		if field.IsZero() && defaultTag != "" && !fromEnv[key] {
			if err := setField(field, defaultTag); err != nil {
				result = multierror.Append(result, fmt.Errorf("default for %s: %w", key, err))
			}
		}
	}
	return result
}

// setField parses raw into the field according to its kind. Supported:
// string, bool, ints, floats, time.Duration and comma-separated
// []string / []int64.
func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to duration: %w", raw, err)
		}
		field.SetInt(int64(duration))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		intVal, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to convert %q to int: %w", raw, err)
		}
		field.SetInt(intVal)
	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("failed to convert %q to float: %w", raw, err)
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to bool: %w", raw, err)
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		values := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(values), len(values))
		switch field.Type().Elem().Kind() {
		case reflect.String:
			for i, v := range values {
				slice.Index(i).SetString(strings.TrimSpace(v))
			}
		case reflect.Int64:
			for i, v := range values {
				intVal, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
				if err != nil {
					return fmt.Errorf("failed to convert %q to int64 list: %w", raw, err)
				}
				slice.Index(i).SetInt(intVal)
			}
		default:
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
