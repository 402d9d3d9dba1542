// Package config loads rule presets from a directory of JSON or YAML files.
//
// A preset's id is its file name without extension: configs/sprint.yaml is
// loaded with LoadConfig("sprint"). JSON presets reject unknown fields so that
// typos surface at load time. Presets are validated with
// engine.ValidateGameConfig and cached until RefreshCache.
//
// The default preset is "classic" when present, otherwise the first valid
// preset in the directory, otherwise engine.DefaultGameConfig.
package config
