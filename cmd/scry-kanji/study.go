package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/session"
	"github.com/spf13/cobra"
)

const studyHelp = `keys: a show answer · 0-4 rate · s skip · p previous · n next · q save and quit`

type studyFlags struct {
	item        string
	fresh       bool
	proficiency string
	jlpt        int
	grade       int
	strokes     string
	sort        string
	limit       int
}

func (c *cli) studyCmd() *cobra.Command {
	var f studyFlags
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Study in the terminal",
		Long: `Study interactively. A saved session is resumed unless --new is given;
otherwise a session is built from the filter flags.

Ratings: 0 unknown, 1 learning, 2 familiar, 3 known, 4 mastered.
Items rated 0 or 1 come back later in the same session.

Examples:
  # Resume, or start with every item in catalog order
  scry-kanji study

  # Twenty due items, most frequent first
  scry-kanji study --new --proficiency review --sort frequency --limit 20

  # Drill a single kanji
  scry-kanji study --item 議`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			sc, err := c.scheduler(cmd)
			if err != nil {
				return err
			}
			defer sc.Close()

			prefs, err := sc.Items.Preferences(cmd.Context())
			if err != nil {
				return err
			}
			loop := &studyLoop{
				sessions: sc.Controller,
				prefs:    prefs,
				in:       bufio.NewScanner(cmd.InOrStdin()),
				out:      cmd.OutOrStdout(),
			}
			return loop.run(cmd.Context(), f, req)
		},
	}

	cmd.Flags().StringVar(&f.item, "item", "", "study only this kanji")
	cmd.Flags().BoolVar(&f.fresh, "new", false, "discard any saved session")
	cmd.Flags().StringVar(&f.proficiency, "proficiency", "", "all, unknown, learning, familiar, known or review")
	cmd.Flags().IntVar(&f.jlpt, "jlpt", 0, "JLPT level 1-5")
	cmd.Flags().IntVar(&f.grade, "grade", 0, "school grade")
	cmd.Flags().StringVar(&f.strokes, "strokes", "", "stroke band: 1-5, 6-10, 11-15, 16-20 or 21+")
	cmd.Flags().StringVar(&f.sort, "sort", "", "default, random, frequency or level")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of items (0 for no limit)")
	return cmd
}

func (f studyFlags) request() (domain.SessionRequest, error) {
	req := domain.SessionRequest{
		Filters: domain.Filters{Strokes: domain.StrokeBand(f.strokes)},
		Sort:    domain.SortPolicy(f.sort),
		Limit:   f.limit,
	}
	if f.proficiency != "" {
		bucket, err := domain.ParseProficiencyBucket(f.proficiency)
		if err != nil {
			return req, err
		}
		req.Filters.Proficiency = bucket
	}
	if f.jlpt != 0 {
		req.Filters.JLPT = domain.IntPtr(f.jlpt)
	}
	if f.grade != 0 {
		req.Filters.Grade = domain.IntPtr(f.grade)
	}
	return req, req.Validate()
}

// sessionDriver is the part of the session controller the terminal loop uses.
type sessionDriver interface {
	StartFromRequest(ctx context.Context, req domain.SessionRequest) (session.View, error)
	ResumeOrStart(ctx context.Context, req domain.SessionRequest) (session.View, error)
	StudyItem(ctx context.Context, itemID string) (session.View, error)
	Rate(ctx context.Context, rating domain.Rating) (session.View, error)
	Skip(ctx context.Context) (session.View, error)
	Next(ctx context.Context) (session.View, error)
	Previous(ctx context.Context) (session.View, error)
	Leave(ctx context.Context) error
}

type studyLoop struct {
	sessions sessionDriver
	prefs    domain.Preferences
	in       *bufio.Scanner
	out      io.Writer
}

func (l *studyLoop) start(ctx context.Context, f studyFlags, req domain.SessionRequest) (session.View, error) {
	switch {
	case f.item != "":
		return l.sessions.StudyItem(ctx, f.item)
	case f.fresh:
		return l.sessions.StartFromRequest(ctx, req)
	default:
		return l.sessions.ResumeOrStart(ctx, req)
	}
}

func (l *studyLoop) run(ctx context.Context, f studyFlags, req domain.SessionRequest) error {
	view, err := l.start(ctx, f, req)
	if errors.Is(err, domain.ErrEmptyQueue) {
		fmt.Fprintln(l.out, "No items match the selected filters.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(l.out, studyHelp)
	revealed := false
	for view.State == session.StateActive {
		l.render(view, revealed)

		if !l.in.Scan() {
			if err := l.in.Err(); err != nil {
				return err
			}
			return l.leave(ctx)
		}

		key := strings.TrimSpace(l.in.Text())
		next, handled, err := l.apply(ctx, key)
		switch {
		case key == "q":
			return l.leave(ctx)
		case key == "a":
			revealed = true
			continue
		case !handled:
			fmt.Fprintln(l.out, studyHelp)
			continue
		case err != nil:
			return err
		}
		view = next
		revealed = false
	}

	fmt.Fprintf(l.out, "Session complete: %d items.\n", view.Length)
	return nil
}

// apply runs the transition bound to key.
func (l *studyLoop) apply(ctx context.Context, key string) (session.View, bool, error) {
	switch key {
	case "0", "1", "2", "3", "4":
		v, err := l.sessions.Rate(ctx, domain.Rating(key[0]-'0'))
		return v, true, err
	case "s":
		v, err := l.sessions.Skip(ctx)
		return v, true, err
	case "n":
		v, err := l.sessions.Next(ctx)
		return v, true, err
	case "p":
		v, err := l.sessions.Previous(ctx)
		return v, true, err
	default:
		return session.View{}, false, nil
	}
}

func (l *studyLoop) leave(ctx context.Context) error {
	if err := l.sessions.Leave(ctx); err != nil {
		return err
	}
	fmt.Fprintln(l.out, "Session saved.")
	return nil
}

func (l *studyLoop) render(v session.View, revealed bool) {
	level := "unknown"
	if v.Progress != nil {
		level = v.Progress.Level.String()
	}
	fmt.Fprintf(l.out, "\n[%s]  %s  (%s)\n", v.Counter, v.ItemID, level)
	if !revealed {
		fmt.Fprint(l.out, "> ")
		return
	}

	d := v.Detail
	if d == nil || !d.Available {
		fmt.Fprintln(l.out, "  (details unavailable)")
		fmt.Fprint(l.out, "> ")
		return
	}
	if l.prefs.ShowKun && len(d.KunReadings) > 0 {
		fmt.Fprintf(l.out, "  kun: %s\n", strings.Join(d.KunReadings, "、"))
	}
	if l.prefs.ShowOn && len(d.OnReadings) > 0 {
		fmt.Fprintf(l.out, "  on:  %s\n", strings.Join(d.OnReadings, "、"))
	}
	if l.prefs.ShowMeaning && len(d.Meanings) > 0 {
		fmt.Fprintf(l.out, "  meaning: %s\n", strings.Join(d.Meanings, ", "))
	}
	if l.prefs.ShowExamples {
		for _, ex := range d.Examples {
			fmt.Fprintf(l.out, "  %s [%s] %s\n", ex.Form, ex.Furigana, ex.Definition)
		}
	} else if ex, ok := d.Representative(); ok {
		fmt.Fprintf(l.out, "  e.g. %s [%s] %s\n", ex.Form, ex.Furigana, ex.Definition)
	}
	if l.prefs.ShowInContext {
		fmt.Fprintf(l.out, "  in context: %s\n", strings.Join(d.ContextWords(3), " "))
	}
	fmt.Fprint(l.out, "> ")
}
