package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/insights-dashboard/internal/store"
	"github.com/AngelCh415/insights-dashboard/internal/theme"
)

type themeOptions struct {
	db  string
	key string
}

func newThemeCmd(root *rootOptions) *cobra.Command {
	opts := &themeOptions{}
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Read or change the stored theme preference",
	}
	cmd.PersistentFlags().StringVar(&opts.db, "db", "", "SQLite preferences file (default DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.key, "key", "", "storage key (default THEME_STORAGE_KEY)")

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the stored theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTheme(cmd, root, opts, func(m *theme.Manager) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), m.Load(cmd.Context()))
				return err
			})
		},
	}, &cobra.Command{
		Use:       "set light|dark|system",
		Short:     "Store a theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.Light), string(theme.Dark), string(theme.System)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := theme.ParseMode(args[0])
			if err != nil {
				return err
			}
			return withTheme(cmd, root, opts, func(m *theme.Manager) error {
				if err := m.Set(cmd.Context(), mode); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), m.Current())
				return err
			})
		},
	})
	return cmd
}

func withTheme(cmd *cobra.Command, root *rootOptions, o *themeOptions, fn func(*theme.Manager) error) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	path := o.db
	if path == "" {
		path = cfg.DBPath
	}
	if path == "" {
		return errors.New("no preferences database: pass --db or set DB_PATH")
	}
	db, err := store.OpenSQLite(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer db.Close()

	key := o.key
	if key == "" {
		key = cfg.ThemeStorageKey
	}
	def, err := theme.ParseMode(cfg.DefaultTheme)
	if err != nil {
		def = theme.DefaultMode
	}
	m := theme.NewManager(db, theme.WithStorageKey(key), theme.WithDefault(def), theme.WithLogger(root.logger(cmd, cfg)))
	return fn(m)
}
