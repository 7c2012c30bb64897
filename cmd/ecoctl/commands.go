package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"example.com/ecopulse/backend/internal/models"
	"example.com/ecopulse/backend/internal/progression"
)

func newLevelsCmd(a *app) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Print the level table of a mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := a.resolveMode(cmd, modeFlag)
			if err != nil {
				return err
			}
			table, ok := a.registry.Tables()[mode]
			if !ok {
				return fmt.Errorf("no level table for mode %s", mode)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tICON\tNAME\tCOST")
			for _, level := range table.Levels() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", level.Rank, level.Icon, level.Name, level.Cost)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "mode to print (pro or kid, defaults to the active mode)")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show coins and rank in both modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "active mode: %s\n", engine.Mode())
			for _, mode := range models.Modes {
				dashboard, err := engine.Snapshot(mode, a.registry.Policy().Themes[mode].Garden)
				if err != nil {
					return err
				}
				printDashboard(out, dashboard)
			}
			return nil
		},
	}
}

func newEarnCmd(a *app) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "earn <amount>",
		Short: "Add coins to a mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || amount < 0 {
				return fmt.Errorf("amount must be a non-negative integer, got %q", args[0])
			}

			mode, err := a.resolveMode(cmd, modeFlag)
			if err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			state, err := engine.EarnCoins(cmd.Context(), mode, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: +%d coins, balance %d\n", mode, amount, state.CoinBalance)
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "mode to credit (defaults to the active mode)")
	return cmd
}

func newLevelUpCmd(a *app) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "level-up",
		Short: "Spend coins on the next rank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := a.resolveMode(cmd, modeFlag)
			if err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			ok, err := engine.LevelUp(cmd.Context(), mode)
			if err != nil {
				return err
			}

			dashboard, err := engine.Snapshot(mode, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case ok:
				fmt.Fprintf(out, "%s: reached rank %d %s %s\n", mode, dashboard.Current.Rank, dashboard.Current.Icon, dashboard.Current.Name)
			case dashboard.IsMaxRank:
				fmt.Fprintf(out, "%s: already at max rank\n", mode)
			default:
				fmt.Fprintf(out, "%s: need %d more coins\n", mode, dashboard.Shortfall)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "mode to upgrade (defaults to the active mode)")
	return cmd
}

func newModeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "mode <pro|kid>",
		Short:     "Switch the active mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(models.ModePro), string(models.ModeKid)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := models.ParseMode(args[0])
			if err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			if err := engine.SetMode(cmd.Context(), mode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active mode: %s\n", mode)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Erase all progress of the player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.backend.Reset(cmd.Context(), a.playerID.String()); err != nil {
				return err
			}
			a.registry.Forget(a.playerID)
			fmt.Fprintln(cmd.OutOrStdout(), "progress reset")
			return nil
		},
	}
}

// resolveMode берет режим из флага или активный режим игрока.
func (a *app) resolveMode(cmd *cobra.Command, flag string) (models.Mode, error) {
	if flag != "" {
		return models.ParseMode(flag)
	}
	engine, err := a.engine(cmd.Context())
	if err != nil {
		return "", err
	}
	return engine.Mode(), nil
}

func printDashboard(out io.Writer, d progression.Dashboard) {
	fmt.Fprintf(out, "\n[%s] rank %d/%d %s %s\n", d.Mode, d.Current.Rank, d.MaxRank, d.Current.Icon, d.Current.Name)
	fmt.Fprintf(out, "  coins: %d\n", d.CoinBalance)
	if d.Next != nil {
		fmt.Fprintf(out, "  next:  %s for %d (%d%%)\n", d.Next.Name, d.Next.Cost, d.ProgressPct)
	} else {
		fmt.Fprintln(out, "  next:  max rank reached")
	}
	if len(d.Garden) > 0 {
		fmt.Fprintf(out, "  garden: %v\n", d.Garden)
	}
}
