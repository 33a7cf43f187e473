package pganconfig

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

// runtime objects attached to the options by the trainer, never printed
var bannedKeys = map[string]struct{}{
	"G":                         {},
	"D":                         {},
	"g_optimizer":               {},
	"d_optimizer":               {},
	"z_sample":                  {},
	"running_average_generator": {},
}

var banner = strings.Repeat("=", 80)

// PrintOptions writes the options dump, one "key value" line per option in key order.
// Nothing is written when "local_rank" is set and non-zero.
func PrintOptions(w io.Writer, opts map[string]interface{}) {
	printOptions(w, opts, func(s string) string { return s })
}

func printOptions(w io.Writer, opts map[string]interface{}, decorate func(string) string) {
	if v, ok := opts["local_rank"]; ok && fmt.Sprint(v) != "0" {
		return
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		if _, ok := bannedKeys[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, decorate(banner))
	fmt.Fprintln(w, decorate("OPTIONS USED:"))
	for _, k := range keys {
		fmt.Fprintf(w, "%-16s %v\n", k, opts[k])
	}
	fmt.Fprintln(w, decorate(banner))
}

// Options returns the options keyed by their json field names.
func (cfg *Config) Options() map[string]interface{} {
	cfg.rlock()
	defer cfg.mu.RUnlock()

	opts := make(map[string]interface{})
	tp, vv := reflect.TypeOf(cfg).Elem(), reflect.ValueOf(cfg).Elem()
	for i := 0; i < tp.NumField(); i++ {
		jv := strings.Replace(tp.Field(i).Tag.Get("json"), ",omitempty", "", -1)
		if jv == "" || jv == "-" {
			continue
		}
		opts[jv] = vv.Field(i).Interface()
	}
	// resolution -> batch size rather than the flag format
	opts["batch_size"] = map[int]int(cfg.BatchSize)
	opts["time_frame_bootstrap"] = cfg.TimeFrameBootstrap.TookString
	return opts
}

// Print writes the options dump to w.
func (cfg *Config) Print(w io.Writer) {
	printOptions(w, cfg.Options(), func(s string) string {
		return cfg.Colorize("[light_blue]" + s)
	})
}
