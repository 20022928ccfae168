// Package config loads palmcam options and watches the files they point at.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "PALMCAM_"

var durationType = reflect.TypeOf(time.Duration(0))

// option is one settable field of an options struct.
type option struct {
	value reflect.Value
	toml  string
	env   string
}

// LoadConfig fills opts with precedence CLI args > env vars > config file.
// opts must point to a flat struct whose fields carry toml and env tags; a
// string field named Config holds the file path. Flags explicitly set on
// cmd are left alone. A missing config file is not an error, a malformed
// one is.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	fields := settableOptions(v, changedFlags(cmd))

	var path string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		path = f.String()
	}
	file, err := readTOML(path)
	if err != nil {
		return err
	}

	for _, o := range fields {
		if o.toml == "" || file == nil {
			continue
		}
		if raw := getNestedValue(file, o.toml); raw != nil {
			if err := assignTOML(o.value, raw); err != nil {
				return fmt.Errorf("%s: %w", o.toml, err)
			}
		}
	}

	for _, o := range fields {
		if o.env == "" {
			continue
		}
		if raw := os.Getenv(EnvPrefix + o.env); raw != "" {
			if err := assignString(o.value, raw); err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, o.env, err)
			}
		}
	}
	return nil
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

// settableOptions lists the fields not overridden on the command line.
func settableOptions(v reflect.Value, changed map[string]bool) []option {
	t := v.Type()
	out := make([]option, 0, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if changed[fieldNameToFlag(sf.Name)] || !v.Field(i).CanSet() {
			continue
		}
		out = append(out, option{value: v.Field(i), toml: sf.Tag.Get("toml"), env: sf.Tag.Get("env")})
	}
	return out
}

func readTOML(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var file map[string]any
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return file, nil
}

// fieldNameToFlag converts a struct field name to its humacli flag name.
// Example: "LoggingLevel" -> "logging-level".
func fieldNameToFlag(fieldName string) string {
	var sb strings.Builder
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			sb.WriteByte('-')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// getNestedValue looks up a dotted path such as "capture.max_zoom".
func getNestedValue(data map[string]any, path string) any {
	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		next, ok := data[key].(map[string]any)
		if !ok {
			return nil
		}
		data = next
	}
	return data[keys[len(keys)-1]]
}

// assignTOML stores a decoded TOML value. Durations take a string such as
// "10s" or integer milliseconds; string fields also take numbers, so
// "0.6" and 0.6 mean the same.
func assignTOML(field reflect.Value, value any) error {
	if s, ok := value.(string); ok && field.Kind() != reflect.String {
		return assignString(field, s)
	}

	if field.Type() == durationType {
		ms, ok := value.(int64)
		if !ok {
			return fmt.Errorf("expected duration, got %T", value)
		}
		field.SetInt(int64(time.Duration(ms) * time.Millisecond))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		switch v := value.(type) {
		case string:
			field.SetString(v)
		case float64:
			field.SetString(strconv.FormatFloat(v, 'f', -1, 64))
		case int64:
			field.SetString(strconv.FormatInt(v, 10))
		default:
			return fmt.Errorf("expected string, got %T", value)
		}
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, ok := value.(int64)
		if !ok {
			return fmt.Errorf("expected integer, got %T", value)
		}
		field.SetInt(i)
	case reflect.Float64:
		switch v := value.(type) {
		case float64:
			field.SetFloat(v)
		case int64:
			field.SetFloat(float64(v))
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("expected string list, got %T", value)
		}
		list := make([]string, 0, len(arr))
		for _, item := range arr {
			s, isString := item.(string)
			if !isString {
				return fmt.Errorf("expected string list item, got %T", item)
			}
			list = append(list, s)
		}
		field.Set(reflect.ValueOf(list))
	}
	return nil
}

// assignString parses text from an env var (or a TOML string) into field.
// Lists are comma separated.
func assignString(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}
