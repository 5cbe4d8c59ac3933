package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/bookmark-lens/internal/app"
	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/errors"
	"github.com/hpungsan/bookmark-lens/internal/ops"
)

// maxStdinBytes caps a note read from stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
// a may be nil when only help or version output is needed.
func newCLIApp(a *app.App) *cli.App {
	cliApp := &cli.App{
		Name:    "lens",
		Usage:   "Semantic bookmark store",
		Version: Version,
		Commands: []*cli.Command{
			saveCmd(a),
			searchCmd(a),
			getCmd(a),
			updateCmd(a),
			deleteCmd(a),
			listCmd(a),
			doctorCmd(a),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// saveCmd creates the save command.
func saveCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Fetch, embed, and store a URL",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "note", Aliases: []string{"n"}, Usage: "Note to keep with the bookmark (- reads stdin)"},
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags"},
			&cli.BoolFlag{Name: "dedupe", Usage: "Update the existing bookmark if the URL is already saved"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one url is required"))
			}

			note, err := noteFlag(c)
			if err != nil {
				return outputError(err)
			}

			output, err := a.Ingestor.Save(c.Context, ops.SaveInput{
				URL:    c.Args().First(),
				Note:   note,
				Tags:   parseTags(c.String("tags")),
				Dedupe: c.Bool("dedupe"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find bookmarks by meaning",
		ArgsUsage: "<query...>",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Maximum results"},
		}, filterFlags()...),
		Action: func(c *cli.Context) error {
			since, until, err := timeFlags(c)
			if err != nil {
				return outputError(err)
			}

			output, err := a.Searcher.Search(c.Context, ops.SearchInput{
				Query:  strings.Join(c.Args().Slice(), " "),
				Limit:  c.Int("limit"),
				Tags:   parseTags(c.String("tags")),
				Domain: c.String("domain"),
				Since:  since,
				Until:  until,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// getCmd creates the get command.
func getCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one bookmark",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "content", Usage: "Include the stored page text"},
		},
		Action: func(c *cli.Context) error {
			output, err := a.Searcher.Get(c.Context, ops.GetInput{
				ID:             c.Args().First(),
				IncludeContent: c.Bool("content"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Change a bookmark's note, title, or tags",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "note", Aliases: []string{"n"}, Usage: "New note (- reads stdin, empty clears)"},
			&cli.StringFlag{Name: "title", Usage: "New title"},
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "tag-mode", Value: string(ops.TagModeAppend), Usage: "How to apply --tags: append|replace"},
			&cli.BoolFlag{Name: "refetch", Usage: "Re-download the page and refresh title and content"},
		},
		Action: func(c *cli.Context) error {
			input := ops.UpdateInput{
				ID:      c.Args().First(),
				TagMode: ops.TagMode(c.String("tag-mode")),
				Refetch: c.Bool("refetch"),
			}

			if c.IsSet("note") {
				note, err := noteFlag(c)
				if err != nil {
					return outputError(err)
				}
				input.Note = &note
			}
			if c.IsSet("title") {
				title := c.String("title")
				input.Title = &title
			}
			if c.IsSet("tags") {
				tags := parseTags(c.String("tags"))
				if tags == nil {
					tags = []string{}
				}
				input.Tags = &tags
			}

			output, err := a.Ingestor.Update(c.Context, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a bookmark and its embedding",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := a.Ingestor.Delete(c.Context, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List bookmarks, newest first",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		}, filterFlags()...),
		Action: func(c *cli.Context) error {
			since, until, err := timeFlags(c)
			if err != nil {
				return outputError(err)
			}

			output, err := a.Searcher.List(c.Context, ops.ListInput{
				Tags:   parseTags(c.String("tags")),
				Domain: c.String("domain"),
				Since:  since,
				Until:  until,
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// doctorCmd creates the doctor command.
func doctorCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check that the metadata store and vector index agree",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "repair", Usage: "Delete stray vectors and re-embed bookmarks that lack one"},
		},
		Action: func(c *cli.Context) error {
			output, err := a.Ingestor.Doctor(c.Context, ops.DoctorInput{Repair: c.Bool("repair")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// filterFlags are the exact filters shared by search and list.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags; all must match"},
		&cli.StringFlag{Name: "domain", Aliases: []string{"d"}, Usage: "Only this domain"},
		&cli.StringFlag{Name: "since", Usage: "Created at or after (unix seconds, YYYY-MM-DD, or RFC 3339)"},
		&cli.StringFlag{Name: "until", Usage: "Created at or before (unix seconds, YYYY-MM-DD, or RFC 3339)"},
	}
}

func timeFlags(c *cli.Context) (*int64, *int64, error) {
	since, err := bookmark.ParseTime(c.String("since"))
	if err != nil {
		return nil, nil, errors.NewInvalidRequest(err.Error())
	}
	until, err := bookmark.ParseTime(c.String("until"))
	if err != nil {
		return nil, nil, errors.NewInvalidRequest(err.Error())
	}
	return since, until, nil
}

// noteFlag returns --note, reading stdin when it is "-".
func noteFlag(c *cli.Context) (string, error) {
	note := c.String("note")
	if note != "-" {
		return note, nil
	}
	if !stdinHasData() {
		return "", errors.NewInvalidRequest("--note - expects the note on stdin")
	}
	text, err := readStdin()
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return text, nil
}

// outputJSON writes JSON output to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var lensErr *errors.LensError
	if stderrors.As(err, &lensErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", lensErr.Code, lensErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, up to maxStdinBytes.
func readStdin() (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxStdinBytes {
		return "", fmt.Errorf("stdin exceeds %d bytes", maxStdinBytes)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
