package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Mschirtzinger/sheetsync/internal/config"
	"github.com/Mschirtzinger/sheetsync/internal/db"
	"github.com/Mschirtzinger/sheetsync/internal/ui"
)

var initCmd = &cobra.Command{
	Use:         "init",
	GroupID:     "maint",
	Short:       "Write a sheetsync.toml config file",
	Annotations: map[string]string{"skipConfig": "true"},
	Long: `Write a config file with the current settings (defaults, environment
and flags) to ./sheetsync.toml, or to the path given by --config.

With --interactive, prompts for the main settings first.

Examples:
  sheetsync init
  sheetsync init --table orders --workbook orders.xlsx
  sheetsync init --interactive --force`,
	Run: runInit,
}

func init() {
	initCmd.Flags().BoolP("interactive", "i", false, "Prompt for settings")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	interactive, _ := cmd.Flags().GetBool("interactive")
	force, _ := cmd.Flags().GetBool("force")

	c, err := config.Load("", cmd.Flags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s ignoring existing settings: %v\n", ui.RenderWarn("⚠"), err)
		c = config.Default()
	}

	if interactive {
		if !ui.IsTerminal(os.Stdin) {
			fmt.Fprintf(os.Stderr, "Error: --interactive requires a terminal\n")
			os.Exit(1)
		}
		if err := promptConfig(c); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Println("Aborted")
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	path := configFile
	if path == "" {
		path = config.DefaultFile
	}

	if err := c.WriteFile(path, force); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", path)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
	fmt.Printf("   Table: %s\n", c.Table)
	fmt.Printf("   Workbook: %s (%s)\n", c.Workbook.Path, sheetLabel(c.Workbook.Sheet))
	fmt.Printf("   Database: %s (%s)\n", c.Database.Path, c.Database.Driver)
	fmt.Printf("\nNext: sheetsync sync --direction sheet-to-table\n")
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func promptConfig(c *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Table name").
				Description("Relational table that mirrors the sheet").
				Value(&c.Table).
				Validate(func(s string) error {
					if !tableNameRe.MatchString(s) {
						return fmt.Errorf("use letters, digits and underscores")
					}
					return nil
				}),
			huh.NewInput().
				Title("Workbook").
				Description("Path to the .xlsx file").
				Value(&c.Workbook.Path),
			huh.NewInput().
				Title("Worksheet").
				Description("Leave blank to use the first sheet").
				Value(&c.Workbook.Sheet),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("SQLite driver").
				Options(
					huh.NewOption("ncruces/go-sqlite3 (WebAssembly)", db.DriverNcruces),
					huh.NewOption("modernc.org/sqlite (pure Go)", db.DriverModernc),
				).
				Value(&c.Database.Driver),
			huh.NewInput().
				Title("Database path").
				Value(&c.Database.Path),
		),
	)
	return form.Run()
}
