// Command validate lints the game presets in a configs directory
// (../configs unless a directory is given as the first argument). It checks:
//   - JSON/YAML structure, unknown JSON fields and the preset rules enforced by the engine
//   - Solver settings, including weight names
//   - Duplicate preset ids across extensions
//   - Playability hints: unreachable targets, crowded starts, slow solver settings
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/wricardo/fibtiles/game/config"
	"github.com/wricardo/fibtiles/game/engine"
	"github.com/wricardo/fibtiles/game/search"
)

// ValidationResult captures the outcome of validating a single file.
// Errors make the preset invalid; Warnings and Info are reported either way.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single preset file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	cfg, err := engine.LoadGameConfig(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	settings, err := search.SettingsFromConfig(cfg)
	if err != nil {
		result.fail("solver: %v", err)
		return result
	}

	checkPlayability(cfg, settings, &result)

	target := "none (play until no moves remain)"
	if cfg.TargetTile > 0 {
		target = fmt.Sprintf("%d", cfg.TargetTile)
	}
	result.Info = append(result.Info,
		fmt.Sprintf("Name: %s", cfg.Name),
		fmt.Sprintf("Board: %dx%d, %d initial tiles", cfg.BoardSize, cfg.BoardSize, cfg.InitialTiles),
		fmt.Sprintf("Target: %s", target),
		fmt.Sprintf("Spawn: 2 with probability %.2f, otherwise 1", cfg.SpawnTwoProbability),
	)
	if cfg.Solver.Disabled {
		result.Info = append(result.Info, "Solver: disabled")
	} else {
		result.Info = append(result.Info, fmt.Sprintf("Solver: depth %d, %s spawns", settings.Depth, settings.Spawn))
	}

	return result
}

// checkPlayability adds warnings for presets that load but play badly
func checkPlayability(cfg *engine.GameConfig, settings search.Settings, result *ValidationResult) {
	cells := cfg.BoardSize * cfg.BoardSize

	// Building the term at index k needs the two previous terms on the board at once,
	// so targets far past the cell count cannot be reached.
	if cfg.TargetTile > 0 && engine.TileIndex(cfg.TargetTile) > cells+1 {
		result.warn("target_tile %d is probably unreachable on a %dx%d board", cfg.TargetTile, cfg.BoardSize, cfg.BoardSize)
	}

	if cfg.InitialTiles > cells/2 {
		result.warn("initial_tiles %d fills more than half of the board", cfg.InitialTiles)
	}

	if cfg.SpawnTwoProbability == 1 && !cfg.MergeOnes {
		result.warn("only 2s spawn and merge_ones is off, so no 1s ever appear")
	}

	if cfg.Solver.Disabled {
		return
	}
	if settings.Depth >= 4 && cells >= 16 && cfg.Solver.NodeLimit == 0 && cfg.Solver.TimeLimitMS == 0 {
		result.warn("solver depth %d on a %dx%d board has no node_limit or time_limit_ms; hints may be slow and stop at the %s default limit",
			settings.Depth, cfg.BoardSize, cfg.BoardSize, search.DefaultTimeLimit)
	}
	if settings.Spawn == search.Sample && settings.Seed == 0 {
		result.warn("solver.spawn is 'sample' without a seed; hints are not reproducible")
	}
}

// duplicateIDs reports preset ids backed by more than one file
func duplicateIDs(files []string) map[string][]string {
	byID := lo.GroupBy(files, func(f string) string {
		base := filepath.Base(f)
		return strings.TrimSuffix(base, filepath.Ext(base))
	})
	return lo.PickBy(byID, func(_ string, group []string) bool {
		return len(group) > 1
	})
}

// presetFiles lists every preset file in dir, sorted
func presetFiles(dir string) ([]string, error) {
	var files []string
	for _, ext := range config.Extensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// validateDir validates every preset in dir and reports whether all are valid
func validateDir(dir string) ([]ValidationResult, bool, error) {
	files, err := presetFiles(dir)
	if err != nil {
		return nil, false, err
	}
	if len(files) == 0 {
		return nil, false, fmt.Errorf("no presets found in %s", dir)
	}

	dups := duplicateIDs(files)
	allValid := true
	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		result := validateConfig(file)
		base := filepath.Base(file)
		if group, ok := dups[strings.TrimSuffix(base, filepath.Ext(base))]; ok {
			result.fail("preset id is defined by several files: %s",
				strings.Join(lo.Map(group, func(f string, _ int) string { return filepath.Base(f) }), ", "))
		}
		allValid = allValid && result.Valid
		results = append(results, result)
	}
	return results, allValid, nil
}

// main validates each preset, printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	results, allValid, err := validateDir(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Info {
				fmt.Println("  ✓ " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Println("  ⚠️  " + warning)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
