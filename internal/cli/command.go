package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idelchi/hdu/internal/report"
	"github.com/idelchi/hdu/internal/usage"
)

// EnvPrefix is the prefix of environment variables overriding flags.
const EnvPrefix = "HDU"

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// Options holds the resolved command-line options.
type Options struct {
	// Targets are the paths to analyze.
	Targets []string
	// Usage configures the traversal. Path is set per target.
	Usage usage.Options
	// Report configures rendering.
	Report report.Options
	// Format is the output format (text or json).
	Format string
}

// flags registers the command-line flags on fs.
func flags(fs *pflag.FlagSet) {
	fs.BoolP("follow-links", "l", false, "Follow links during recursion")
	fs.BoolP("follow-mounts", "m", false, "Follow mount points during recursion")
	fs.BoolP("allow-special", "e", false, "Include special files")
	fs.BoolP("allow-hidden", "i", false, "Include hidden files")
	fs.BoolP("only-dirs", "s", false, "Show only directories and not files")
	fs.IntP("max-depth", "d", 1, "Max recursion depth (negative for unlimited)")
	fs.StringP("sort-by", "o", "size", "Sort results by: name, name_r, size or size_r")
	fs.StringP("units", "u", "unix", "Display sizes in units: iec, si, unix or an explicit unit (e.g. KiB)")
	fs.IntP("percent-precision", "p", 2, "Number of decimal digits in the percent field")
	fs.IntP("bar-size", "b", 20, "Size of the text progress bar (0 disables it)")
	fs.BoolP("null", "0", false, "Use \\0 instead of \\n as line separator")
	fs.CountP("verbose", "v", "Increase the level of verbosity")
	fs.BoolP("quiet", "q", false, "Only show the summary of each target")
	fs.String("format", "text", "Output format: text or json")
	fs.String("config", "", "Configuration file")
	fs.SortFlags = false
}

// load resolves the options from flags, environment and configuration file.
func load(v *viper.Viper, args []string) (Options, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	allowedFormats := []string{"text", "json"}

	options := Options{
		Targets: args,
		Usage: usage.Options{
			FollowLinks:  v.GetBool("follow-links"),
			FollowMounts: v.GetBool("follow-mounts"),
			AllowSpecial: v.GetBool("allow-special"),
			AllowHidden:  v.GetBool("allow-hidden"),
			OnlyDirs:     v.GetBool("only-dirs"),
			MaxDepth:     v.GetInt("max-depth"),
		},
		Report: report.Options{
			SortBy:           v.GetString("sort-by"),
			Units:            v.GetString("units"),
			PercentPrecision: v.GetInt("percent-precision"),
			BarSize:          v.GetInt("bar-size"),
			LineSeparator:    "\n",
			Verbosity:        report.VerbosityLow + v.GetInt("verbose"),
		},
		Format: strings.ToLower(v.GetString("format")),
	}

	if v.GetBool("null") {
		options.Report.LineSeparator = "\x00"
	}

	if v.GetBool("quiet") {
		options.Report.Verbosity = report.VerbosityNone
	}

	if !slices.Contains(allowedFormats, options.Format) {
		return Options{}, fmt.Errorf("invalid output format %q: must be one of %v", options.Format, allowedFormats)
	}

	if options.Report.PercentPrecision < 0 {
		return Options{}, errors.New("percent precision cannot be negative")
	}

	if len(options.Targets) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return Options{}, fmt.Errorf("getting current directory: %w", err)
		}

		options.Targets = []string{cwd}
	}

	return options, nil
}

// Command builds the root command.
func (c CLI) Command() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "hdu [flags] [TARGET...]",
		Short: "Human-friendly summary of disk usage",
		Long: heredoc.Doc(`
			hdu displays a human-friendly summary of estimated disk space usage
			for files and directories, similar to 'du'.

			Positional Arguments:
			  TARGET                 Files or directories to analyze. Defaults to the current directory.

			Each target gets its own report: one line per entry with a bar, the
			percentage of the total and the size, followed by the resolved path
			and the totals. Entries deeper than --max-depth are rolled up into
			their displayed ancestor.

			Every flag can also be set through an environment variable prefixed
			with HDU_ (e.g. HDU_UNITS=iec) or in the file given with --config.
		`),
		Version:       c.version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := load(v, args)
			if err != nil {
				return err
			}

			return logic(cmd.Context(), options, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags(cmd.Flags())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cobra.CheckErr(v.BindPFlags(cmd.Flags()))

	return cmd
}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute(ctx context.Context) error {
	return c.Command().ExecuteContext(ctx)
}
