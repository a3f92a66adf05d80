package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// LogLevels is the hierarchical log level configuration: keys are dotted
// component paths (e.g. "catalog.migrate", "destination"), values are
// level strings consumed by logger.InitLevelConfig.
type LogLevels map[string]string

// LogLevelsDecodeHook returns a DecodeHookFunc that short-circuits
// mapstructure's decoding into LogLevels. Some TOML parses turn dotted
// keys under [log.levels] into nested maps, which mapstructure can't
// decode directly into a flat map[string]string; Load re-derives the
// flat form afterwards via flattenLogLevels(viper.Get("log.levels")).
func LogLevelsDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(LogLevels{}) {
			return data, nil
		}
		return make(LogLevels), nil
	}
}

// flattenLogLevels turns whatever shape viper.Get("log.levels") returns
// (a flat map, a nested map from dotted-key parsing, or nil) into a flat
// LogLevels map joined with ".".
func flattenLogLevels(raw interface{}) LogLevels {
	out := make(LogLevels)
	flattenInto(out, "", raw)
	return out
}

func flattenInto(out LogLevels, prefix string, raw interface{}) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return
	}
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]interface{}:
			flattenInto(out, key, val)
		default:
			out[key] = fmt.Sprintf("%v", val)
		}
	}
}
