package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/takutakahashi/cogs/pkg/cogs/translation"
	"github.com/takutakahashi/cogs/pkg/engine"
)

const greeting = `
**************************** Cogs ****************************

Enter text and get back a translation. Ctrl+C to exit.

`

// maxConcurrentArgs bounds how many positional arguments are translated at once
const maxConcurrentArgs = 8

// errNoInput is returned when stdin closes before a line was read
var errNoInput = errors.New("no text to translate on standard input")

type translateOptions struct {
	from        string
	to          string
	contentType string
	category    string
	repl        bool
}

// TranslateCmd translates text read from arguments or standard input
var TranslateCmd = NewTranslateCmd()

// NewTranslateCmd returns a fresh translate command
func NewTranslateCmd() *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate things with Microsoft Cognitive Services",
		Long: `Translate text with the Microsoft Translator API.

Each argument is translated on its own. Without arguments one line is read
from standard input, or every line when --repl is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.from, "from", "f", "", "Language to translate from")
	flags.StringVarP(&opts.to, "to", "t", "", "Language to translate to")
	flags.BoolVarP(&opts.repl, "repl", "r", false, "Set this flag to start a REPL session")
	flags.StringVar(&opts.contentType, "content-type", "", "Content type of the text: plain or html")
	flags.StringVar(&opts.category, "category", "", "Translation category")
	addCommonFlags(cmd)

	for _, name := range []string{"from", "to"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func runTranslate(cmd *cobra.Command, opts *translateOptions, args []string) error {
	contentType, err := translation.ParseContentType(opts.contentType)
	if err != nil {
		return err
	}
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	eng := newEngine(cfg, log, nil)

	newRequest := func(text string) translation.TranslateRequest {
		return translation.TranslateRequest{
			Text:        text,
			From:        opts.from,
			To:          opts.to,
			ContentType: contentType,
			Category:    opts.category,
			URL:         cfg.TranslateURL,
		}
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case len(args) > 0:
		reqs := make([]translation.TranslateRequest, len(args))
		for i, text := range args {
			reqs[i] = newRequest(text)
		}
		results, err := translateAll(ctx, eng, reqs)
		if err != nil {
			return err
		}
		for _, result := range results {
			fmt.Fprintln(out, result)
		}
		return nil

	case opts.repl:
		fmt.Fprint(out, greeting)
		return repl(ctx, eng, cmd.InOrStdin(), out, cmd.ErrOrStderr(), newRequest)

	default:
		text, err := readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}
		result, err := engine.Run(ctx, eng, newRequest(text))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result)
		return nil
	}
}

// translateAll runs every request concurrently. Results keep the order of reqs.
func translateAll(ctx context.Context, eng *engine.Engine, reqs []translation.TranslateRequest) ([]string, error) {
	results := make([]string, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentArgs)
	for i, req := range reqs {
		g.Go(func() error {
			result, err := engine.Run(ctx, eng, req)
			if err != nil {
				return fmt.Errorf("failed to translate %q: %w", req.Text, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// repl translates each input line until in is exhausted or ctx is done.
// A failed line is reported on errOut and the loop carries on.
func repl(ctx context.Context, eng *engine.Engine, in io.Reader, out, errOut io.Writer, newRequest func(string) translation.TranslateRequest) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		result, err := engine.Run(ctx, eng, newRequest(text))
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "%s\n\n", result)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	text := strings.TrimSpace(line)
	if text == "" {
		return "", errNoInput
	}
	return text, nil
}
