package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/curiouscoder/blogcms/internal/cache"
	"github.com/curiouscoder/blogcms/internal/content"
	"github.com/curiouscoder/blogcms/internal/diagram"
	"github.com/curiouscoder/blogcms/internal/logging"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	diagramURL     string
	diagramTimeout time.Duration
	asJSON         bool
}

type documentStats struct {
	Blocks      int                `json:"blocks"`
	Words       int                `json:"words"`
	ReadingTime int                `json:"readingTime"`
	Excerpt     string             `json:"excerpt"`
	TOC         []content.TOCEntry `json:"toc"`
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "blocks",
		Short:         "Offline tools for block documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(logging.LoggerSetupParams{LogLevel: logLevel})
			log.SetOutput(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	root.AddCommand(newRenderCmd(), newStatsCmd(), newSlugCmd())
	return root
}

func newRenderCmd() *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a document to HTML, reads stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			params := content.RendererParams{DiagramTimeout: opts.diagramTimeout}
			if opts.diagramURL != "" {
				params.Diagrams = diagram.NewClient(
					opts.diagramURL,
					&http.Client{Timeout: opts.diagramTimeout},
					cache.NewFreeCache(8),
				)
			}

			rendered := content.NewRenderer(params).RenderDocument(cmd.Context(), doc)
			for _, d := range rendered.Diagnostics {
				log.Warnf("block %d [%s]: %s", d.Index, d.Type, d.Message)
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				return writeJSON(out, rendered)
			}
			_, err = fmt.Fprintln(out, rendered.HTML())
			return err
		},
	}
	cmd.Flags().StringVar(&opts.diagramURL, "diagram-url", "", "diagram service address, diagrams are left for client side rendering when empty")
	cmd.Flags().DurationVar(&opts.diagramTimeout, "diagram-timeout", content.DefaultDiagramTimeout, "timeout for a single diagram render")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the rendered blocks and diagnostics as JSON")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var excerptChars int
	cmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "Print word count, reading time, excerpt and table of contents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), documentStats{
				Blocks:      len(doc.Blocks),
				Words:       content.WordCount(doc),
				ReadingTime: content.ReadingTime(doc),
				Excerpt:     content.Excerpt(doc, excerptChars),
				TOC:         content.TableOfContents(doc),
			})
		},
	}
	cmd.Flags().IntVar(&excerptChars, "excerpt-chars", 300, "max excerpt length in characters")
	return cmd
}

func newSlugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slug <title>",
		Short: "Print the URL slug for a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := content.Slugify(strings.Join(args, " "))
			if slug == "" {
				return fmt.Errorf("title %q has no usable characters", strings.Join(args, " "))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), slug)
			return err
		},
	}
}

func readDocument(stdin io.Reader, args []string) (content.Document, error) {
	var (
		raw []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return content.Document{}, fmt.Errorf("read document: %w", err)
	}

	doc, err := content.ParseDocument(raw)
	if err != nil {
		return content.Document{}, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

