// Command energyctl runs dashboard page pipelines from the command line and
// prints their view models as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"energy_dashboard/internal/api"
	"energy_dashboard/internal/config"
	"energy_dashboard/internal/dashboard"
	"energy_dashboard/internal/fetch"
	"energy_dashboard/internal/options"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	envFile string
	apiURL  string
	pages   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "energyctl",
		Short:         "Query the energy dashboard pipelines",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(g.envFile)
		},
	}
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&g.apiURL, "api-url", "", "energy API base URL (overrides API_URL, API_HOST and API_PORT)")
	root.PersistentFlags().StringVar(&g.pages, "pages", "", "YAML page contexts (overrides PAGES_FILE; built-in when empty)")

	root.AddCommand(
		createPageCmd(g),
		createOptionsCmd(),
		createCheckPagesCmd(g),
		createPermutationsCmd(g),
	)
	return root
}

// service builds the page pipelines against the configured API.
func (g *globalFlags) service() (*dashboard.Service, error) {
	url := config.APIURL(g.apiURL)
	if url == "" {
		return nil, fmt.Errorf("energy API not configured: set --api-url, API_URL or API_HOST")
	}
	pages, err := config.LoadPages(config.Resolve(g.pages, "PAGES_FILE"))
	if err != nil {
		return nil, err
	}
	client := api.NewClient(url, api.WithBucket(config.Resolve("", "API_BUCKET")))
	return dashboard.New(fetch.New(client, nil), client, pages, nil), nil
}

func createPageCmd(g *globalFlags) *cobra.Command {
	var (
		set       []string
		threshold float64
	)
	v := options.Values{}

	cmd := &cobra.Command{
		Use:   "page <page>",
		Short: "Render one page and print its view model",
		Long: `Render one page and print its view model as JSON.

Examples:
  energyctl page energy-balance --year 2024 --model Reell
  energyctl page energy-in-out --month 03 --set showElProductionDetails=true
  energyctl page accumulated-balance --set showAsCO2=true`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: dashboard.PageIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseSet(set)
			if err != nil {
				return err
			}
			svc, err := g.service()
			if err != nil {
				return err
			}
			svc.Threshold = threshold

			view, err := svc.Render(cmd.Context(), args[0], v.Clone(extra))
			if err != nil {
				if f := dashboard.Describe(err); f.Kind != dashboard.KindError {
					return fmt.Errorf("%s: %s", f.Kind, err)
				}
				return err
			}
			return writeJSON(cmd.OutOrStdout(), view)
		},
	}

	defaults := options.Sitewide(time.Now()).Defaults()
	for _, key := range []string{options.KeyYear, options.KeyMonth, options.KeyMeasuringPoint, options.KeyModel} {
		v[key] = defaults[key]
		cmd.Flags().Var(&valueFlag{values: v, key: key}, flagName(key), key+" option")
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "extra option as key=value, repeatable")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "energy-in-out link threshold; page setting when 0")
	return cmd
}

func createOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options [page]",
		Short: "Print the option catalog of a page, or the sitewide options",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := ""
			if len(args) == 1 {
				page = args[0]
			}
			svc := dashboard.New(nil, nil, nil, nil)
			catalog, err := svc.Options(page)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"options": catalog, "defaults": catalog.Defaults()})
		},
	}
}

func createCheckPagesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-pages [file]",
		Short: "Validate a YAML page-context file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Resolve(g.pages, "PAGES_FILE")
			if len(args) == 1 {
				path = args[0]
			}
			p, err := config.LoadPages(path)
			if err != nil {
				return err
			}
			if path == "" {
				path = "built-in pages"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d sankey links, threshold %v)\n",
				path, len(p.EnergyInOut.Sankey.Links), p.EnergyInOut.Threshold)
			return nil
		},
	}
}

func createPermutationsCmd(g *globalFlags) *cobra.Command {
	var showInvalid bool
	cmd := &cobra.Command{
		Use:   "permutations <page>",
		Short: "Render every sitewide option combination and report which have data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := args[0]
			svc, err := g.service()
			if err != nil {
				return err
			}
			catalog, err := svc.Options(page)
			if err != nil {
				return err
			}
			valid, invalid := options.ValidOptions(cmd.Context(), options.Permutations(catalog), func(ctx context.Context, v options.Values) error {
				_, err := svc.Render(ctx, page, v)
				return err
			}, nil)

			out := map[string]any{"page": page, "valid": len(valid), "invalid": len(invalid)}
			if showInvalid {
				out["invalidOptions"] = invalid
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&showInvalid, "show-invalid", false, "list the combinations without data")
	return cmd
}

// valueFlag writes a flag straight into an options.Values entry.
type valueFlag struct {
	values options.Values
	key    string
}

func (f *valueFlag) String() string {
	if f.values == nil {
		return ""
	}
	return f.values[f.key]
}

func (f *valueFlag) Set(s string) error {
	f.values[f.key] = s
	return nil
}

func (f *valueFlag) Type() string { return "string" }

// flagName turns measuringPoint into measuring-point.
func flagName(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseSet(pairs []string) (options.Values, error) {
	v := options.Values{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", p)
		}
		v[key] = value
	}
	return v, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
