package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"modmap/internal/app"
	"modmap/internal/config"
	"modmap/internal/encryption"
	"modmap/internal/model"
	"modmap/internal/modmap"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// app.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "modmap",
	Short: "Persistent source-module documentation store",
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Collection:  %s\n", cfg.Collection)
		fmt.Printf("Store Root:  %s\n", cfg.Storage.RootDir)
		fmt.Printf("Auto-backup: %t (retain %d)\n", cfg.Storage.AutoBackup, cfg.Storage.MaxBackups)
		return nil
	},
}

// key command

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the mirror encryption key pair",
}

var keySetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate an age key pair for mirror encryption",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		enc := encryption.NewAgeEncryptor(cfg.Encryption)
		if enc.IsConfigured() {
			return fmt.Errorf("key pair already exists at %s", cfg.Encryption.PublicKeyPath)
		}

		fmt.Print("Passphrase for the private key: ")
		passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		if len(passphrase) == 0 {
			return fmt.Errorf("passphrase must not be empty")
		}

		if err := enc.Setup(string(passphrase)); err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s (passphrase protected)\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// module commands

var (
	addType   string
	addParent string
	addFile   string
	addDesc   string
	addAccess string
	addDeps   []string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Add")
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.Add(modmap.AddModuleInput{
			Name:           args[0],
			Type:           model.ModuleType(addType),
			Parent:         addParent,
			FilePath:       addFile,
			Description:    addDesc,
			AccessModifier: model.AccessModifier(addAccess),
			Dependencies:   addDeps,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", m.HierarchicalName, m.ID)
		return nil
	},
}

var (
	updateFile   string
	updateDesc   string
	updateAccess string
	updateDeps   []string
)

var updateCmd = &cobra.Command{
	Use:   "update <hierarchical-name>",
	Short: "Update a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Update")
		if err != nil {
			return err
		}
		defer a.Close()

		patch := modmap.ModulePatch{}
		if cmd.Flags().Changed("file") {
			patch.FilePath = &updateFile
		}
		if cmd.Flags().Changed("desc") {
			patch.Description = &updateDesc
		}
		if cmd.Flags().Changed("access") {
			access := model.AccessModifier(updateAccess)
			patch.AccessModifier = &access
		}
		if cmd.Flags().Changed("deps") {
			patch.Dependencies = &updateDeps
		}

		m, err := a.Update(args[0], patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", m.HierarchicalName)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <hierarchical-name>",
	Short: "Delete a module (fails if it has children)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <hierarchical-name>",
	Short: "Show a module as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Show")
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(m)
	},
}

var structureCmd = &cobra.Command{
	Use:     "structure <hierarchical-name>",
	Aliases: []string{"tree"},
	Short:   "Show a module's hierarchy and relationships",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Structure")
		if err != nil {
			return err
		}
		defer a.Close()

		ts, err := a.GetTypeStructure(args[0])
		if err != nil {
			return err
		}

		if len(ts.Ancestors) > 0 {
			fmt.Printf("Ancestors:    %s\n", strings.Join(ts.Ancestors, " > "))
		}
		fmt.Printf("Module:       %s (%s)\n", ts.Target.HierarchicalName, ts.Target.Type)
		if len(ts.Children) > 0 {
			fmt.Printf("Children:     %s\n", strings.Join(ts.Children, ", "))
		}
		if len(ts.Descendants) > 0 {
			fmt.Printf("Descendants:  %d\n", len(ts.Descendants))
		}
		if len(ts.Dependencies) > 0 {
			fmt.Printf("Depends on:   %s\n", strings.Join(ts.Dependencies, ", "))
		}
		if len(ts.Dependents) > 0 {
			fmt.Printf("Depended by:  %s\n", strings.Join(ts.Dependents, ", "))
		}
		return nil
	},
}

var (
	searchQuery  string
	searchName   string
	searchType   string
	searchPath   string
	searchParent string
	searchLimit  int
	searchOffset int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search modules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Search")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Search(modmap.SearchCriteria{
			Query:    searchQuery,
			Name:     searchName,
			Type:     model.ModuleType(searchType),
			FilePath: searchPath,
			Parent:   searchParent,
			Limit:    searchLimit,
			Offset:   searchOffset,
		})
		if err != nil {
			return err
		}

		for _, m := range result.Modules {
			fmt.Printf("%-40s %-15s %s\n", m.HierarchicalName, m.Type, m.FilePath)
		}
		fmt.Printf("\n%d of %d match(es)\n", len(result.Modules), result.Total)
		return nil
	},
}

// storage commands

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the collection file",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Backup")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.Backup()
		if err != nil {
			return err
		}
		fmt.Printf("Backup created: %s\n", info.Path)
		fmt.Printf("Size: %d bytes, checksum %s\n", info.Size, info.Checksum)
		return nil
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List retained snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListBackups")
		if err != nil {
			return err
		}
		defer a.Close()

		backups, err := a.ListBackups()
		if err != nil {
			return err
		}
		for _, b := range backups {
			fmt.Printf("%s  %8d bytes  %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"), b.Size, b.Path)
		}
		fmt.Printf("\n%d snapshot(s)\n", len(backups))
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-name>",
	Short: "Replace the collection file with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RestoreBackup(args[0]); err != nil {
			return err
		}
		fmt.Printf("Restored from %s\n", args[0])
		return nil
	},
}

var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check file and graph integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Integrity")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.CheckIntegrity()
		if err != nil {
			return err
		}
		fmt.Printf("Files: %d total, %d valid, %d corrupted\n",
			files.TotalFiles, files.ValidFiles, files.CorruptedFiles)
		for _, f := range files.Files {
			for _, e := range f.Errors {
				fmt.Printf("  [%s] error: %s\n", f.Collection, e)
			}
			for _, w := range f.Warnings {
				fmt.Printf("  [%s] warning: %s\n", f.Collection, w)
			}
		}

		report, cycles, err := a.CheckGraph()
		if err != nil {
			return err
		}
		fmt.Printf("Graph: %d error(s), %d warning(s), %d cycle(s)\n",
			len(report.Errors), len(report.Warnings), len(cycles))
		for _, e := range report.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		for _, w := range report.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Auto-repair orphan references (snapshots first)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Repair")
		if err != nil {
			return err
		}
		defer a.Close()

		issues, report, err := a.Repair()
		if err != nil {
			return err
		}
		fmt.Printf("Detected %d issue(s), fixed %d, skipped %d\n",
			len(issues), len(report.Fixed), len(report.Skipped))
		for _, issue := range report.Fixed {
			fmt.Printf("  fixed: %s\n", issue.Detail)
		}
		for _, issue := range report.Skipped {
			fmt.Printf("  skipped: %s\n", issue.Detail)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.GetStats()
		if err != nil {
			return err
		}
		fmt.Printf("Collections: %d\n", stats.Collections)
		fmt.Printf("Modules:     %d\n", stats.TotalModules)
		fmt.Printf("Size:        %d bytes\n", stats.TotalBytes)
		fmt.Printf("Backups:     %d\n", stats.TotalBackups)
		for name, per := range stats.PerFile {
			fmt.Printf("  %-20s %5d modules, %8d bytes, %d backup(s)\n",
				name, per.Modules, per.SizeBytes, per.Backups)
		}
		return nil
	},
}

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent storage events (diagnostic ring buffer)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Events")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, e := range a.Events(eventsLimit) {
			status := "ok"
			if !e.Success {
				status = "FAILED"
			}
			fmt.Printf("%s  %-16s %-12s %-7s %s\n",
				e.Time.Format("2006-01-02 15:04:05"), e.Operation, e.Collection, status, e.Detail)
		}
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the durable operation log",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(historyLimit)
		if err != nil {
			return err
		}
		for _, op := range ops {
			fmt.Printf("%5d  %s  %-10s %-12s %s\n",
				op.ID, op.CreatedAt.Format("2006-01-02 15:04:05"), op.Operation, op.Collection, op.Detail)
		}
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	configCmd.AddCommand(configInitCmd, configListCmd)
	keyCmd.AddCommand(keySetupCmd)

	addCmd.Flags().StringVar(&addType, "type", "", "module type: class, function, variable, file, function_group")
	addCmd.Flags().StringVar(&addParent, "parent", "", "hierarchical name of the parent module")
	addCmd.Flags().StringVar(&addFile, "file", "", "source file path")
	addCmd.Flags().StringVar(&addDesc, "desc", "", "description")
	addCmd.Flags().StringVar(&addAccess, "access", "", "access modifier: public, private, protected")
	addCmd.Flags().StringSliceVar(&addDeps, "deps", nil, "dependency hierarchical names")
	addCmd.MarkFlagRequired("type")

	updateCmd.Flags().StringVar(&updateFile, "file", "", "source file path")
	updateCmd.Flags().StringVar(&updateDesc, "desc", "", "description")
	updateCmd.Flags().StringVar(&updateAccess, "access", "", "access modifier")
	updateCmd.Flags().StringSliceVar(&updateDeps, "deps", nil, "dependency hierarchical names")

	searchCmd.Flags().StringVar(&searchQuery, "query", "", "free-text query across all fields")
	searchCmd.Flags().StringVar(&searchName, "name", "", "match on name")
	searchCmd.Flags().StringVar(&searchType, "type", "", "match on type")
	searchCmd.Flags().StringVar(&searchPath, "path", "", "match on file path")
	searchCmd.Flags().StringVar(&searchParent, "parent", "", "match on parent")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "page size (0 = no limit)")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "page offset")

	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum events to show")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum entries to show")

	rootCmd.AddCommand(
		configCmd, keyCmd,
		addCmd, updateCmd, deleteCmd, showCmd, structureCmd, searchCmd,
		backupCmd, backupsCmd, restoreCmd,
		integrityCmd, repairCmd, statsCmd, eventsCmd, historyCmd,
	)
}
