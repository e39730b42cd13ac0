package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"facility-inspect/internal/model"
	"facility-inspect/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			if err := service.NewInspectionService(db, a.cfg.ItemPolicy).Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func (a *app) userCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var in model.UserInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user; prompts for the password when --password is not given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				pw, err := readPassword(cmd)
				if err != nil {
					return err
				}
				in.Password = pw
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			u, err := service.NewUserService(db).Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (admin=%t)\n", u.Email, u.IsAdmin)
			return nil
		},
	}
	add.Flags().StringVar(&in.Email, "email", "", "login email")
	add.Flags().StringVar(&in.Password, "password", "", "password (prompted when empty)")
	add.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	add.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	add.Flags().StringVar(&in.Position, "position", "", "job title")
	add.Flags().BoolVar(&in.IsAdmin, "admin", false, "grant admin role")
	_ = add.MarkFlagRequired("email")

	list := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			users, err := service.NewUserService(db).List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tNAME\tPOSITION\tADMIN")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", u.Email, u.DisplayName(), u.Position, u.IsAdmin)
			}
			return tw.Flush()
		},
	}

	remove := &cobra.Command{
		Use:   "remove EMAIL",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			if err := service.NewUserService(db).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}

	user.AddCommand(add, list, remove)
	return user
}

// readPassword prompts without echo on a terminal, else reads one line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) exportCmd() *cobra.Command {
	var out string
	export := &cobra.Command{
		Use:       "export csv|xlsx",
		Short:     "Export the file store",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"csv", "xlsx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			files := service.NewFileStore(a.cfg.Storage.Dir)
			path := out
			if path == "" {
				path = filepath.Join(a.cfg.Storage.Dir, "inspections_export."+args[0])
			}
			var (
				n   int
				err error
			)
			if args[0] == "xlsx" {
				n, err = files.ExportXLSX(path)
			} else {
				n, err = files.ExportCSV(path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d inspections to %s\n", n, path)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "output", "o", "", "output path (default inside the storage dir)")
	return export
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show inspection counts from the database, or the file store when it is down",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if db, err := a.openDB(); err == nil {
				stats, err := service.NewInspectionService(db, a.cfg.ItemPolicy).Stats(cmd.Context())
				if err == nil {
					printStats(w, stats.StorageType, stats.Total, stats.Recent, stats.ByType)
					return nil
				}
				if !service.IsConnection(err) {
					return err
				}
			}
			stats, err := service.NewFileStore(a.cfg.Storage.Dir).SummaryStats()
			if err != nil {
				return err
			}
			byType := make(map[string]int64, len(stats.ByType))
			for k, v := range stats.ByType {
				byType[k] = int64(v)
			}
			printStats(w, stats.StorageType, int64(stats.Total), int64(stats.Recent), byType)
			return nil
		},
	}
}

func printStats(w io.Writer, storage string, total, recent int64, byType map[string]int64) {
	fmt.Fprintf(w, "storage: %s\ntotal: %d\nrecent (30 days): %d\n", storage, total, recent)
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %s: %d\n", t, byType[t])
	}
}
