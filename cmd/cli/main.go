package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/janwilmake/flaredream.dash/internal/app"
	"github.com/janwilmake/flaredream.dash/internal/config"
	"github.com/janwilmake/flaredream.dash/internal/domain"
	"github.com/janwilmake/flaredream.dash/internal/logging"
	"github.com/janwilmake/flaredream.dash/pkg/client"
)

var (
	outputJSON bool
	viewAs     string
	viewToken  string
	format     string
	remote     bool
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Repository deployment dashboard tool",
	Long: `A CLI tool for generating and reading cached repository dashboards.

Dashboards list a GitHub user's repositories, grouped by whether they carry a
worker deployment config, with deep links into the source host, an editor and
the deployment console.`,
	SilenceUsage: true,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [user]",
	Short: "Regenerate the dashboards of a user",
	Long: `Fetch the repositories of a user, detect deployment configs and write the
rendered dashboards to the cache. Pass --as and --token as the user themselves
to also generate the private dashboard.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

var showCmd = &cobra.Command{
	Use:   "show [user]",
	Short: "Print a cached dashboard",
	Long:  `Print the cached dashboard of a user at the tier the viewer may see.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var detectCmd = &cobra.Command{
	Use:   "detect [owner/repo]",
	Short: "Detect the deployment config of one repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

var keysCmd = &cobra.Command{
	Use:   "keys [user]",
	Short: "Show which cache entries exist for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeys,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	for _, cmd := range []*cobra.Command{refreshCmd, showCmd} {
		cmd.Flags().StringVar(&viewAs, "as", "", "login of the viewer")
		cmd.Flags().StringVar(&viewToken, "token", "", "credential of the viewer")
	}
	detectCmd.Flags().StringVar(&viewToken, "token", "", "credential used to read the repository")
	showCmd.Flags().StringVar(&format, "format", "plaintext", "output format (markup, plaintext)")
	showCmd.Flags().BoolVar(&remote, "remote", false, "read through the API server instead of the local cache")

	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(keysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	return app.New(cfg, logger)
}

func viewer() *domain.Viewer {
	if viewAs == "" {
		return nil
	}
	return &domain.Viewer{Login: viewAs, Credential: viewToken}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	username := args[0]

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Orchestrator.Refresh(cmd.Context(), username, viewer())
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Refresh ID", result.RefreshID})
	table.Append([]string{"Username", result.Username})
	table.Append([]string{"Tier", string(result.Tier)})
	table.Append([]string{"Generated", result.GeneratedAt.Format("2006-01-02 15:04:05 MST")})
	table.Append([]string{"Public repositories", fmt.Sprintf("%d", result.PublicCount)})
	table.Append([]string{"Private repositories", fmt.Sprintf("%d", result.PrivateCount)})
	table.Append([]string{"Deployable", fmt.Sprintf("%d", result.Deployable)})
	for _, k := range result.Keys {
		table.Append([]string{"Wrote", k.String()})
	}
	table.Render()
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	username := args[0]
	f := domain.ParseFormat(format)

	if remote {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		c := client.NewClient(cfg.APIEndpoint, client.WithViewer(viewAs, viewToken))
		page, err := c.GetDashboard(cmd.Context(), username, f)
		if client.IsNotGenerated(err) {
			return fmt.Errorf("no dashboard for %s yet; run `dashboard refresh %s`", username, username)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "tier: %s\n", page.Tier)
		fmt.Print(page.Content)
		return nil
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.Reader.Read(cmd.Context(), username, viewer(), f)
	if err != nil {
		return err
	}
	if !page.Found {
		return fmt.Errorf("no %s dashboard for %s yet; run `dashboard refresh %s`", page.Tier, page.Username, page.Username)
	}
	fmt.Fprintf(os.Stderr, "tier: %s\n", page.Tier)
	fmt.Print(page.Content)
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	owner, name, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || name == "" {
		return fmt.Errorf("expected owner/repo, got %q", args[0])
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	repo := &domain.Repository{Owner: owner, Name: name}
	cfg := a.Detector.Detect(cmd.Context(), repo, viewToken)
	if cfg == nil {
		if outputJSON {
			return printJSON(nil)
		}
		fmt.Printf("No deployment config found in %s\n", repo.FullName())
		return nil
	}

	if outputJSON {
		return printJSON(cfg)
	}
	return renderDeployTable(repo, cfg)
}

func renderDeployTable(repo *domain.Repository, cfg *domain.DeployConfig) error {
	fmt.Printf("\nDeployment config: %s\n\n", repo.FullName())

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.Append([]string{"Source", cfg.Source})
	table.Append([]string{"Service", cfg.ServiceName(repo.Name)})
	entry := "-"
	if cfg.Main != nil {
		entry = *cfg.Main
	}
	table.Append([]string{"Entrypoint", entry})
	for _, r := range cfg.Routes {
		table.Append([]string{"Route", r})
	}
	for _, b := range cfg.Bindings {
		table.Append([]string{"Binding", fmt.Sprintf("%s: %s", b.Kind, b.ID)})
	}
	table.Render()
	return nil
}

func runKeys(cmd *cobra.Command, args []string) error {
	username := args[0]

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	statuses, err := a.Reader.Inventory(cmd.Context(), username)
	if err != nil {
		return err
	}

	if outputJSON {
		type keyJSON struct {
			Key     string `json:"key"`
			Present bool   `json:"present"`
			Size    int    `json:"size"`
		}
		out := make([]keyJSON, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, keyJSON{Key: s.Key.String(), Present: s.Present, Size: s.Size})
		}
		return printJSON(out)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Present", "Bytes"})
	for _, s := range statuses {
		present := "no"
		if s.Present {
			present = "yes"
		}
		table.Append([]string{s.Key.String(), present, fmt.Sprintf("%d", s.Size)})
	}
	table.Render()
	return nil
}
