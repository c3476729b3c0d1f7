// Command detective-cli interrogates the evidence from a terminal,
// without running the HTTP server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/coldcase-labs/detective/internal/chunker"
	"github.com/coldcase-labs/detective/internal/config"
	"github.com/coldcase-labs/detective/internal/domain"
	openaiEmb "github.com/coldcase-labs/detective/internal/embedding/openai"
	"github.com/coldcase-labs/detective/internal/embedding/tfidf"
	openaiGen "github.com/coldcase-labs/detective/internal/generation/openai"
	"github.com/coldcase-labs/detective/internal/loader"
	logpkg "github.com/coldcase-labs/detective/internal/logger"
	"github.com/coldcase-labs/detective/internal/metrics"
	"github.com/coldcase-labs/detective/internal/usecase/ingest"
	"github.com/coldcase-labs/detective/internal/usecase/pipeline"
	"github.com/coldcase-labs/detective/internal/version"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true).
			Border(lipgloss.DoubleBorder()).
			Padding(1, 4)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("208")).
			Padding(1, 2)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))
)

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("failed to load config: "+err.Error()))
		os.Exit(1)
	}

	// Keep zap quiet on the interactive console; errors still surface.
	logger, err := logpkg.New(env, "error")
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("failed to create logger: "+err.Error()))
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterPipelineMetrics()

	fmt.Println(bannerStyle.Render("COLD CASE DETECTIVE\nRetrieval-Augmented Generation System\n" + version.String()))

	var embedder domain.Embedder
	if cfg.Embedding.Provider == "tfidf" {
		embedder = tfidf.New()
	} else {
		embedder, err = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("embedder: "+err.Error()))
			os.Exit(1)
		}
	}

	generator, err := openaiGen.NewClient(&openaiGen.Config{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("generation backend: "+err.Error()))
		fmt.Fprintln(os.Stderr, "Set the generation api_key in your config or .env file.")
		os.Exit(1)
	}

	splitter := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	qa := pipeline.New(splitter, embedder, generator, cfg.Retrieval.TopK, logger)
	evidence := loader.New(cfg.Evidence.Dir, logger)
	reindexer := ingest.New(evidence, qa, logger)

	ctx := context.Background()

	fmt.Println(infoStyle.Render("Loading evidence from " + cfg.Evidence.Dir + " ..."))
	st, err := reindexer.Reindex(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("indexing failed: "+err.Error()))
		fmt.Fprintln(os.Stderr, "Add .txt files to "+cfg.Evidence.Dir+" and try again.")
		os.Exit(1)
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf(
		"Indexed %d evidence file(s) into %d chunk(s). The detective is ready.",
		st.Documents, st.Chunks,
	)))

	runConsole(ctx, qa)
}

// runConsole reads questions from stdin until quit/exit/q or EOF.
func runConsole(ctx context.Context, qa *pipeline.Service) {
	fmt.Println()
	fmt.Println("Type your questions to interrogate the evidence.")
	fmt.Println("Commands: 'quit' or 'exit' to leave | 'help' for tips")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("Detective > "), " ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "quit", "exit", "q":
			fmt.Println(infoStyle.Render("\nCase files secured. Until next time, Detective."))
			return
		case "help":
			printHelp()
			continue
		}

		fmt.Println(infoStyle.Render("\nAnalyzing evidence..."))

		answer, err := qa.Ask(ctx, input)
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			continue
		}

		fmt.Println(answerStyle.Render(answer.Text))
		if len(answer.Sources) > 0 {
			fmt.Println(sourceStyle.Render(fmt.Sprintf("Sources consulted: %d evidence chunk(s)", len(answer.Sources))))
			for i, src := range answer.Sources {
				fmt.Println(sourceStyle.Render(fmt.Sprintf("  [%d] %s (score %.3f)", i+1, src.Chunk.Source, src.Score)))
			}
		}
		fmt.Println()
	}
}

func printHelp() {
	fmt.Println(infoStyle.Render(`
Tips for interrogating the evidence:
  - Ask specific questions about events, people, or locations
  - Reference specific evidence if you remember filenames
  - Ask for connections between pieces of evidence
  - Request a summary of what we know so far`))
}
