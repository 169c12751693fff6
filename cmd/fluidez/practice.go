package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fluidez/internal/content"
	"fluidez/internal/media"
	"fluidez/internal/overlay"
	"fluidez/internal/progress"
	"fluidez/internal/touch"
)

type practiceOptions struct {
	day           int
	rate          float64
	pause         time.Duration
	greetingDelay time.Duration
	mute          bool
}

func newPracticeCmd(opts *options) *cobra.Command {
	p := &practiceOptions{}
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Read a day's vocabulary aloud",
		Long: `Greets you, then speaks each vocabulary word of the chosen day with
the system speech engine (espeak-ng or espeak). Without an engine the words
are only printed. Sound effects play through ffplay or mpv when installed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPractice(cmd, opts, p)
		},
	}
	cmd.Flags().IntVar(&p.day, "day", 0, "Day to practise (default: current day)")
	cmd.Flags().Float64Var(&p.rate, "rate", media.DefaultRate, "Speech rate, 1.0 is normal speed")
	cmd.Flags().DurationVar(&p.pause, "pause", 1500*time.Millisecond, "Pause between words")
	cmd.Flags().DurationVar(&p.greetingDelay, "greeting", 2*time.Second, "How long the greeting stays up")
	cmd.Flags().BoolVar(&p.mute, "mute", false, "Disable sound effects")
	return cmd
}

func runPractice(cmd *cobra.Command, opts *options, p *practiceOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := progress.NewStore(store, progress.Key(opts.owner), opts.log).Load(ctx)
	prof := progress.NewProfiles(store, opts.log).Load(ctx, opts.owner)
	idx, err := content.Default()
	if err != nil {
		return err
	}
	n := p.day
	if n == 0 {
		n = rec.CurrentDay
	}
	day := idx.Day(n)
	if day == nil {
		return fmt.Errorf("no lesson for day %d", n)
	}

	catalog, err := touch.LoadCatalog(os.Getenv("TOUCH_CATALOG"))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "👩🏽‍🏫 %s! %s\n", catalog.Greeting(time.Now().Hour()), catalog.Message(rec.Streak, n))
	if err := waitGreeting(ctx, p.greetingDelay); err != nil {
		return err
	}

	synth := media.NewCommandSynthesizer(opts.log)
	voice := media.NewVoice(synth, opts.log)
	defer voice.Close()
	if !synth.Available() {
		fmt.Fprintln(out, "(no speech engine found, showing words only)")
	}

	// A nil *CommandPlayer must not end up inside the Player interface.
	var player media.Player
	if cp := media.NewCommandPlayer(); cp != nil {
		player = cp
	}
	sounds := media.NewSounds(player, opts.log)
	if p.mute {
		sounds.SetEnabled(false)
	}

	fmt.Fprintf(out, "\nDay %d: %s\n", day.Day, day.Title)
	lang := prof.SpeechLang()
	for i, word := range day.Vocabulary {
		fmt.Fprintf(out, "%2d. %-20s %s\n", i+1, word.Spanish, word.English)
		select {
		case outcome := <-voice.Speak(word.Spanish, media.WithLang(lang), media.WithRate(p.rate)):
			if outcome == media.Failed {
				opts.log.Debug("Speech failed", "word", word.Spanish)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := sleep(ctx, p.pause); err != nil {
			return err
		}
	}

	sounds.Play(media.EffectComplete)
	fmt.Fprintf(out, "\n✨ Module Complete! %d words practised.\n", len(day.Vocabulary))
	if d, ok := touch.NewSampler(catalog, -1, nil).Sample(); ok {
		fmt.Fprintf(out, "%s %s\n", d.Emoji, d.Text)
	}
	return nil
}

// waitGreeting blocks until the greeting overlay dismisses itself.
func waitGreeting(ctx context.Context, delay time.Duration) error {
	done := make(chan struct{})
	greeting := overlay.New(delay, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		greeting.Close()
		return ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
