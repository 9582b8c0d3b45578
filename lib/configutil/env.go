package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotenv loads the given dotenv files (".env" when none are given) into
// the process environment. Missing files are ignored, variables that are
// already set are not overwritten.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		_, err := os.Stat(f)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		present = append(present, f)
	}
	if len(present) == 0 {
		return nil
	}
	slog.Debug("loading dotenv files", "files", present)
	return godotenv.Load(present...)
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overwrites the fields of the struct pointed to by target with
// the environment variable named in their `env:"NAME"` tag, if it is set.
// Nested structs are walked recursively. Supported field kinds are
// strings, bools and ints.
func ApplyEnv(target any, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value := reflect.ValueOf(target)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("apply env: expected pointer to struct, got %T", target)
	}
	return applyEnvStruct(value.Elem(), lookup)
}

func applyEnvStruct(value reflect.Value, lookup LookupFunc) error {
	typ := value.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldValue := value.Field(i)

		if field.Type.Kind() == reflect.Struct {
			err := applyEnvStruct(fieldValue, lookup)
			if err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		raw, ok := lookup(name)
		if !ok {
			continue
		}
		err := setField(fieldValue, raw)
		if err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int64, reflect.Int32:
		parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(parsed)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
