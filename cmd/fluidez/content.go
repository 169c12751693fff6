package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fluidez/internal/content"
)

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Browse the built-in curriculum",
	}

	day := &cobra.Command{
		Use:   "day N",
		Short: "Print the lesson for day N",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("day must be a number: %w", err)
			}
			idx, err := content.Default()
			if err != nil {
				return err
			}
			d := idx.Day(n)
			if d == nil {
				return fmt.Errorf("no lesson for day %d", n)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Day %d: %s\n%s\n\n", d.Day, d.Title, d.Subtitle)
			fmt.Fprintf(w, "📖 %s\n%s\n", d.Grammar.Title, d.Grammar.Explanation)
			for _, ex := range d.Grammar.Examples {
				fmt.Fprintf(w, "  %s (%s)\n", ex.Spanish, ex.English)
			}
			fmt.Fprintln(w, "\n🗣️ Vocabulary")
			for _, word := range d.Vocabulary {
				fmt.Fprintf(w, "  %-20s %-20s /%s/\n", word.Spanish, word.English, word.Pronunciation)
			}
			return nil
		},
	}

	var upTo int
	cards := &cobra.Command{
		Use:   "flashcards",
		Short: "List the flashcards unlocked by a given day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := content.Default()
			if err != nil {
				return err
			}
			deck := idx.FlashcardsForDay(upTo)
			w := cmd.OutOrStdout()
			for _, c := range deck {
				fmt.Fprintf(w, "[day %d] %s = %s\n", c.Day, c.Front, c.Back)
			}
			fmt.Fprintf(w, "%d card(s)\n", len(deck))
			return nil
		},
	}
	cards.Flags().IntVar(&upTo, "day", 1, "Include cards introduced on or before this day")

	weeks := &cobra.Command{
		Use:   "weeks",
		Short: "Show how the 30 days are grouped",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, wk := range content.Weeks() {
				first, last := wk.Days[0], wk.Days[len(wk.Days)-1]
				fmt.Fprintf(cmd.OutOrStdout(), "Week %d: %-20s days %d-%d\n", wk.Num, wk.Title, first, last)
			}
		},
	}

	cmd.AddCommand(day, cards, weeks)
	return cmd
}
