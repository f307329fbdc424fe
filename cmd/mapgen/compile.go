package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/mapgen/pkg/kernel/manifest"
	"github.com/ormasoftchile/mapgen/pkg/kernel/recipe"
	"github.com/ormasoftchile/mapgen/pkg/kernel/trace"
)

var compileQuiet bool

var compileCmd = &cobra.Command{
	Use:   "compile [manifest.yaml] [recipe.yaml]",
	Short: "Compile a recipe config against a manifest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompile(cmd.OutOrStdout(), args[0], args[1])
	},
}

func runCompile(w io.Writer, manifestPath, configPath string) error {
	compiled, fp, err := compileFiles(recipe.NewCompiler(recipe.WithLogger(logger)), manifestPath, configPath)
	if err != nil {
		return err
	}
	if !compileQuiet {
		if err := writeJSON(w, compiled); err != nil {
			return err
		}
	}
	printOK(w, fmt.Sprintf("compiled %d stage(s), fingerprint %s", len(compiled), fp))
	return nil
}

// compileFiles builds the manifest, compiles the recipe config and
// fingerprints the result.
func compileFiles(c *recipe.Compiler, manifestPath, configPath string) (recipe.CompiledConfig, string, error) {
	bundle, err := manifest.BuildFile(manifestPath)
	if err != nil {
		return nil, "", err
	}
	rc, err := manifest.LoadRecipeConfigFile(configPath)
	if err != nil {
		return nil, "", err
	}
	compiled, err := c.Compile(recipe.Input{
		Env:    rc.Env,
		Recipe: bundle.Recipe,
		Config: rc.Config,
	})
	if err != nil {
		return nil, "", err
	}
	fp, err := trace.Fingerprint(compiled)
	if err != nil {
		return nil, "", err
	}
	return compiled, fp, nil
}

func init() {
	compileCmd.Flags().BoolVarP(&compileQuiet, "quiet", "q", false, "Only print the fingerprint")
	rootCmd.AddCommand(compileCmd)
}
