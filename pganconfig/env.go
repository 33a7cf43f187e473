package pganconfig

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// EnvironmentVariablePrefix is the environment variable prefix.
const EnvironmentVariablePrefix = "PGAN_"

// UpdateFromEnvs updates fields from environmental variables.
// Empty values are ignored and do not overwrite fields with empty values.
// WARNING: The environmental variable value always overwrites current field
// values if there's a conflict.
func (cfg *Config) UpdateFromEnvs() error {
	cfg.lock()
	defer cfg.mu.Unlock()
	return parseEnvs(EnvironmentVariablePrefix, cfg, os.LookupEnv)
}

// EnvKey returns the environment variable name of a json field name.
// e.g. "batch_size" becomes "PGAN_BATCH_SIZE"
func EnvKey(jsonName string) string {
	jv := strings.Replace(jsonName, ",omitempty", "", -1)
	return EnvironmentVariablePrefix + strings.ToUpper(strings.Replace(jv, "-", "_", -1))
}

func parseEnvs(pfx string, obj interface{}, lookup func(string) (string, bool)) error {
	tp, vv := reflect.TypeOf(obj).Elem(), reflect.ValueOf(obj).Elem()
	for i := 0; i < tp.NumField(); i++ {
		jv := tp.Field(i).Tag.Get("json")
		if jv == "" || jv == "-" {
			continue
		}
		jv = strings.Replace(jv, ",omitempty", "", -1)
		jv = strings.ToUpper(strings.Replace(jv, "-", "_", -1))
		env := pfx + jv
		sv, ok := lookup(env)
		if !ok || sv == "" {
			continue
		}
		if tp.Field(i).Tag.Get("read-only") == "true" { // error when read-only field is set for update
			return fmt.Errorf("'%s=%s' is 'read-only' field; should not be set", env, sv)
		}
		fieldName := tp.Field(i).Name

		// e.g. "BatchSchedule" parses its own flag format
		if pv, ok := vv.Field(i).Addr().Interface().(pflag.Value); ok {
			if err := pv.Set(sv); err != nil {
				return fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
			}
			continue
		}

		switch vv.Field(i).Type().Kind() {
		case reflect.String:
			vv.Field(i).SetString(sv)

		case reflect.Bool:
			bb, err := strconv.ParseBool(sv)
			if err != nil {
				return fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
			}
			vv.Field(i).SetBool(bb)

		case reflect.Int, reflect.Int32, reflect.Int64:
			if vv.Field(i).Type().Name() == "Duration" {
				iv, err := time.ParseDuration(sv)
				if err != nil {
					return fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
				}
				vv.Field(i).SetInt(int64(iv))
			} else {
				iv, err := strconv.ParseInt(sv, 10, 64)
				if err != nil {
					return fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
				}
				vv.Field(i).SetInt(iv)
			}

		case reflect.Float32, reflect.Float64:
			fv, err := strconv.ParseFloat(sv, 64)
			if err != nil {
				return fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
			}
			vv.Field(i).SetFloat(fv)

		case reflect.Slice: // only supports "[]string" for now
			ss := strings.Split(sv, ",")
			slice := reflect.MakeSlice(reflect.TypeOf([]string{}), len(ss), len(ss))
			for j := range ss {
				slice.Index(j).SetString(strings.TrimSpace(ss[j]))
			}
			vv.Field(i).Set(slice)

		default:
			return fmt.Errorf("field %q (kind %s) not supported for environmental variable %q", fieldName, vv.Field(i).Kind(), env)
		}
	}
	return nil
}
