package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvp-joe/docfill/internal/config"
	"github.com/mvp-joe/docfill/internal/logging"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docfill",
	Short: "Insert placeholder XML documentation comments into C# sources",
	Long: `docfill finds public constructors, async Task methods and properties that
have no /// documentation block and inserts a three-line <summary> block above
each one, silencing missing-documentation warnings (CS1591).

Configuration is read from <dir>/.docfill/config.yml and DOCFILL_* environment
variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	_ = logging.Sync()
	if err != nil {
		// check has already listed its findings
		if !errors.Is(err, ErrUndocumented) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// loadProject resolves the project directory from args (default ".") and
// loads its configuration, configuring the logger to match.
func loadProject(args []string) (string, *config.Config, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, fmt.Errorf("failed to access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("%s is not a directory", dir)
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Log.Level
	if viper.GetBool("verbose") {
		level = "debug"
	}
	if err := logging.Configure(logging.Options{Level: level, Format: cfg.Log.Format}); err != nil {
		return "", nil, err
	}

	return root, cfg, nil
}

// relPath shortens path for display relative to root.
func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
