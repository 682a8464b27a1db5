package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/ops"
	"github.com/hpungsan/carryon/internal/web"
)

// MaxStdinBytes bounds transcript and document input read from stdin.
const MaxStdinBytes = 10 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps *ops.Deps) *cli.App {
	app := &cli.App{
		Name:    "carryon",
		Usage:   "Session continuity cache",
		Version: Version,
		Commands: []*cli.Command{
			saveCmd(deps),
			recallCmd(deps),
			statusCmd(deps),
			replayCmd(deps),
			searchCmd(deps),
			addCmd(deps),
			forgetCmd(deps),
			listCmd(deps),
			exportCmd(deps),
			importCmd(deps),
			uiCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// saveCmd creates the save command.
func saveCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Condense a transcript into the session state (reads \"role: text\" lines from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "context-id", Aliases: []string{"c"}, Usage: "Conversation id (generated when omitted)"},
			&cli.IntFlag{Name: "message-count", Aliases: []string{"n"}, Usage: "Messages in the conversation so far"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Save regardless of the capture gate"},
		},
		Action: func(c *cli.Context) error {
			transcript, err := requireStdin(c, "transcript")
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Save(c.Context, deps, ops.SaveInput{
				Transcript:   transcript,
				ContextID:    c.String("context-id"),
				MessageCount: c.Int("message-count"),
				Force:        c.Bool("force"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// recallCmd creates the recall command.
func recallCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "recall",
		Usage: "Recall the saved session state for a new or resumed conversation",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "message-count", Aliases: []string{"n"}, Usage: "Messages so far including the current one"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Current user message"},
			&cli.BoolFlag{Name: "already-recalled", Usage: "The caller already holds recalled state"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Recall(c.Context, deps, ops.RecallInput{
				MessageCount:    c.Int("message-count"),
				UserMessage:     c.String("message"),
				AlreadyRecalled: c.Bool("already-recalled"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current session state record and settings",
		Action: func(c *cli.Context) error {
			output, err := ops.Status(c.Context, deps)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// replayCmd creates the replay command.
func replayCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Drive a recorded conversation through recall and capture (reads \"role: text\" lines from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "context-id", Aliases: []string{"c"}, Usage: "Conversation id (generated when omitted)"},
		},
		Action: func(c *cli.Context) error {
			transcript, err := requireStdin(c, "transcript")
			if err != nil {
				return outputError(err)
			}
			msgs := ops.ParseTranscript(transcript)
			if len(msgs) == 0 {
				return outputError(errors.NewInvalidRequest("transcript has no \"user:\" or \"assistant:\" lines"))
			}

			output, err := ops.Replay(c.Context, deps, ops.ReplayInput{
				Messages:  msgs,
				ContextID: c.String("context-id"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Similarity search over stored documents",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Maximum results"},
			&cli.Float64Flag{Name: "threshold", Aliases: []string{"t"}, Usage: "Minimum score in [0, 1]"},
			&cli.StringFlag{Name: "filter", Usage: "Metadata filter, e.g. area=='notes'"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(c.Context, deps, ops.SearchInput{
				Query:     strings.Join(c.Args().Slice(), " "),
				Limit:     c.Int("limit"),
				Threshold: c.Float64("threshold"),
				Filter:    c.String("filter"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// addCmd creates the add command.
func addCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Store a document (reads text from stdin)",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "meta", Usage: "Metadata as key=value (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			text, err := requireStdin(c, "text")
			if err != nil {
				return outputError(err)
			}
			meta, err := parseMeta(c.StringSlice("meta"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Add(c.Context, deps, ops.AddInput{Text: text, Metadata: meta})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// forgetCmd creates the forget command.
func forgetCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "forget",
		Usage:     "Delete documents by id, or by similarity to a query",
		ArgsUsage: "[id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Delete documents similar to this text"},
			&cli.Float64Flag{Name: "threshold", Aliases: []string{"t"}, Usage: "Minimum score for query deletes (default 0.8)"},
			&cli.StringFlag{Name: "filter", Usage: "Metadata filter for query deletes"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ForgetInput{
				IDs:    c.Args().Slice(),
				Query:  c.String("query"),
				Filter: c.String("filter"),
			}
			if c.IsSet("threshold") {
				th := c.Float64("threshold")
				input.Threshold = &th
			}

			output, err := ops.Forget(c.Context, deps, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored documents, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Usage: "Metadata filter"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Page size"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, deps, ops.ListInput{
				Filter: c.String("filter"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored documents to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Destination .jsonl path"},
			&cli.StringFlag{Name: "filter", Usage: "Metadata filter"},
			&cli.StringFlag{Name: "label", Usage: "File name prefix for the default path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, deps, ops.ExportInput{
				Path:   c.String("path"),
				Filter: c.String("filter"),
				Label:  c.String("label"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import documents from a JSONL export",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "On id collision: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one path is required"))
			}
			output, err := ops.Import(c.Context, deps, ops.ImportInput{
				Path: c.Args().First(),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the read-only web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8421, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(deps, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(srv, deps.Logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to the app writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if cErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// requireStdin reads piped input, failing when stdin is a terminal or the
// input is blank.
func requireStdin(c *cli.Context, what string) (string, error) {
	if !stdinHasData(c.App.Reader) {
		return "", errors.NewInvalidRequest(what + " must be piped via stdin")
	}
	text, err := readStdinWithLimit(c.App.Reader, MaxStdinBytes)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.NewInvalidRequest(what + " is required")
	}
	return text, nil
}

// stdinHasData returns true if r is not an interactive terminal.
func stdinHasData(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdinWithLimit reads all of r, failing when it exceeds limit bytes.
func readStdinWithLimit(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin input exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}

// parseMeta turns key=value pairs into a metadata map.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid metadata %q (want key=value)", p))
		}
		meta[k] = strings.TrimSpace(v)
	}
	return meta, nil
}
