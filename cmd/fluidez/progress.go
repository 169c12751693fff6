package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fluidez/internal/progress"
	"fluidez/internal/streak"
)

func newProgressCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show or change learner progress",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored progress record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withProgress(cmd, func(s *progress.Store) error {
				printRecord(cmd.OutOrStdout(), s.Load(cmd.Context()))
				return nil
			})
		},
	}

	advance := &cobra.Command{
		Use:   "advance",
		Short: "Move on to the next day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withProgress(cmd, func(s *progress.Store) error {
				printRecord(cmd.OutOrStdout(), s.AdvanceDay(cmd.Context()))
				return nil
			})
		},
	}

	var (
		day, streakDays, words, seconds, cards int
		dayProgress                            float64
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Overwrite individual progress fields",
		Long: `Only the flags you pass are written; everything else is left alone.

Example:
  fluidez progress set --streak 4 --day-progress 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			var p progress.Partial
			if f.Changed("day") {
				p.CurrentDay = progress.Int(day)
			}
			if f.Changed("day-progress") {
				p.DayProgress = progress.Float(dayProgress)
			}
			if f.Changed("streak") {
				p.Streak = progress.Int(streakDays)
			}
			if f.Changed("words") {
				p.WordsLearned = progress.Int(words)
			}
			if f.Changed("time") {
				p.TimeSpent = progress.Int(seconds)
			}
			if f.Changed("cards") {
				p.CardsToReview = progress.Int(cards)
			}
			if p.IsEmpty() {
				return fmt.Errorf("nothing to set; pass at least one field flag")
			}
			return opts.withProgress(cmd, func(s *progress.Store) error {
				rec, err := s.Update(cmd.Context(), p)
				if err != nil {
					return err
				}
				printRecord(cmd.OutOrStdout(), rec)
				return nil
			})
		},
	}
	set.Flags().IntVar(&day, "day", 0, "Current day (1-30)")
	set.Flags().Float64Var(&dayProgress, "day-progress", 0, "Progress through the current day (0-100)")
	set.Flags().IntVar(&streakDays, "streak", 0, "Streak in days")
	set.Flags().IntVar(&words, "words", 0, "Words learned")
	set.Flags().IntVar(&seconds, "time", 0, "Time spent in seconds")
	set.Flags().IntVar(&cards, "cards", 0, "Cards due for review")

	cmd.AddCommand(show, advance, set)
	return cmd
}

// withProgress opens the store, hands fn the owner's progress and closes the store.
func (o *options) withProgress(cmd *cobra.Command, fn func(*progress.Store) error) error {
	store, err := o.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(progress.NewStore(store, progress.Key(o.owner), o.log))
}

func printRecord(w io.Writer, rec progress.Record) {
	fmt.Fprintf(w, "📅 Day %d of %d (%.0f%% done)\n", rec.CurrentDay, progress.MaxDay, rec.DayProgress)
	fmt.Fprintf(w, "%s Streak: %d\n", streak.FlameIntensity(rec.Streak).Emoji, rec.Streak)
	fmt.Fprintf(w, "📖 Words: %d\n", rec.WordsLearned)
	fmt.Fprintf(w, "⏱️  Time: %dm\n", rec.TimeSpent/60)
	fmt.Fprintf(w, "📚 Cards due: %d\n", rec.CardsToReview)
}

func newStreakCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the completion streak and the next milestone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			st := streak.NewTracker(store, opts.log).Load(cmd.Context(), opts.owner)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %d day streak (longest %d)\n", streak.FlameIntensity(st.CurrentStreak).Emoji, st.CurrentStreak, st.LongestStreak)
			fmt.Fprintf(w, "Days completed: %d\n", st.TotalDaysCompleted)
			if next := streak.NextMilestone(st.CurrentStreak); next > 0 {
				pct := streak.MilestoneProgress(st.CurrentStreak)
				fmt.Fprintf(w, "Next milestone: %d days [%s%s] %d%%\n", next,
					strings.Repeat("█", pct/10), strings.Repeat("░", 10-pct/10), pct)
			}
			return nil
		},
	}
}
