package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/appshelf"
	"github.com/ZaguanLabs/appshelf/cache"
	"github.com/ZaguanLabs/appshelf/internal/config"
	"github.com/ZaguanLabs/appshelf/internal/server"
	"github.com/ZaguanLabs/appshelf/processor"
)

type translateFlags struct {
	lang      string
	locale    string
	source    string
	bulk      bool
	html      bool
	asJSON    bool
	dryRun    bool
	cacheFile string
}

// translatedLine is one entry of --json output.
type translatedLine struct {
	Source   string `json:"source"`
	Text     string `json:"text"`
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback"`
}

func newTranslateCmd(root *rootFlags) *cobra.Command {
	f := &translateFlags{}

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate strings or an HTML document from args or stdin",
		Long: `Translate each argument, or each non-empty stdin line when no
arguments are given; surrounding whitespace is kept. With --html the whole input is treated as one HTML
document. Untranslatable text is printed unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return runTranslate(cmd, cfg, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.lang, "lang", "l", "", "target language code (e.g. ES)")
	cmd.Flags().StringVar(&f.locale, "locale", "", "target locale tag (e.g. es-MX); ignored when --lang is set")
	cmd.Flags().StringVar(&f.source, "source", "", "source language code (default: detect)")
	cmd.Flags().BoolVar(&f.bulk, "bulk", false, "send all texts as one batch")
	cmd.Flags().BoolVar(&f.html, "html", false, "treat input as a single HTML document")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "list what would be translated without calling the backend")
	cmd.Flags().StringVar(&f.cacheFile, "cache-file", "", "import this cache export before translating and write it back after")
	return cmd
}

func runTranslate(cmd *cobra.Command, cfg *config.Config, f *translateFlags, args []string) error {
	out := cmd.OutOrStdout()

	target, source, err := f.languages(cfg)
	if err != nil {
		return err
	}

	var texts []string
	var document string
	if f.html {
		document, err = readDocument(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
	} else {
		texts, err = readTexts(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if len(texts) == 0 {
			return errors.New("no text to translate")
		}
	}

	if f.dryRun {
		return dryRun(out, f, target, texts, document)
	}

	logger, err := toolLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stack, err := server.Build(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer stack.Close()

	if f.cacheFile != "" {
		result, err := cache.NewImporter(stack.Cache).ImportFromFile(f.cacheFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("load cache file: %w", err)
		default:
			logger.WithField("entries", result.Imported).Debug("cache file loaded")
		}
	}

	if f.html {
		processed, err := stack.Translator.TranslateHTML(ctx, document, target)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, processed.Content)
		if processed.FallbackCount > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d of %d text nodes left untranslated\n",
				processed.FallbackCount, processed.TotalNodes)
		}
	} else {
		var results []appshelf.Result
		if f.bulk {
			results = stack.Translator.TranslateBulk(ctx, texts, target, source)
		} else {
			results = make([]appshelf.Result, len(texts))
			for i, text := range texts {
				results[i] = stack.Translator.Translate(ctx, text, target, source)
			}
		}
		if err := printResults(out, f.asJSON, texts, results); err != nil {
			return err
		}
		reportFallbacks(cmd.ErrOrStderr(), results)
	}

	if f.cacheFile != "" {
		if _, err := cache.NewExporter(stack.Cache).ExportToFile(f.cacheFile, map[string]string{"target_lang": string(target)}); err != nil {
			return fmt.Errorf("write cache file: %w", err)
		}
	}
	return nil
}

// languages resolves target and source from flags, falling back to the
// configured default target.
func (f *translateFlags) languages(cfg *config.Config) (appshelf.Language, appshelf.Language, error) {
	var target appshelf.Language
	switch {
	case f.lang != "":
		lang, err := appshelf.ParseLanguage(f.lang)
		if err != nil {
			return "", "", err
		}
		target = lang
	case f.locale != "":
		target = appshelf.LanguageFromLocale(f.locale)
	default:
		target = cfg.DefaultLanguage()
	}

	var source appshelf.Language
	if f.source != "" {
		lang, err := appshelf.ParseLanguage(f.source)
		if err != nil {
			return "", "", fmt.Errorf("source: %w", err)
		}
		source = lang
	}
	return target, source, nil
}

func readTexts(in io.Reader, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var texts []string
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			texts = append(texts, line)
		}
	}
	return texts, scanner.Err()
}

// readDocument reads HTML from the file named by the single argument, or stdin.
func readDocument(in io.Reader, args []string) (string, error) {
	switch len(args) {
	case 0:
		data, err := io.ReadAll(in)
		return string(data), err
	case 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("--html takes at most one input file")
	}
}

func dryRun(out io.Writer, f *translateFlags, target appshelf.Language, texts []string, document string) error {
	if f.html {
		_, nodes, err := processor.NewHTMLProcessor().Extract(document)
		if err != nil {
			return err
		}
		texts = make([]string, len(nodes))
		for i, n := range nodes {
			texts[i] = n.Text
		}
	}

	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"target_lang": target,
			"texts":       texts,
		})
	}

	fmt.Fprintf(out, "Would translate %d text(s) to %s (%s):\n", len(texts), target.Name(), target)
	for _, text := range texts {
		fmt.Fprintf(out, "  %q\n", text)
	}
	return nil
}

func printResults(out io.Writer, asJSON bool, texts []string, results []appshelf.Result) error {
	if !asJSON {
		for _, res := range results {
			fmt.Fprintln(out, res.Text)
		}
		return nil
	}

	lines := make([]translatedLine, len(results))
	for i, res := range results {
		lines[i] = translatedLine{
			Source:   texts[i],
			Text:     res.Text,
			Cached:   res.Cached,
			Fallback: res.UsedFallback,
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(lines)
}

func reportFallbacks(w io.Writer, results []appshelf.Result) {
	n := 0
	var cause error
	for _, res := range results {
		if res.UsedFallback {
			n++
			if cause == nil {
				cause = res.Err
			}
		}
	}
	if n == 0 {
		return
	}
	if cause != nil {
		fmt.Fprintf(w, "warning: %d of %d text(s) left untranslated: %v\n", n, len(results), cause)
		return
	}
	fmt.Fprintf(w, "warning: %d of %d text(s) left untranslated\n", n, len(results))
}
