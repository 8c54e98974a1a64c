package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mikeboe/shopping-agent/pkg/config"
	"github.com/mikeboe/shopping-agent/pkg/shopping"
	"github.com/mikeboe/shopping-agent/pkg/shopping/tools"
	"github.com/spf13/cobra"
)

var query string

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "shopping-agent",
		Short: "A terminal-based shopping recommendation agent",
		Long:  `shopping-agent analyzes a shopping question, searches and scrapes product pages, and writes a recommendation.`,
		Run: func(cmd *cobra.Command, args []string) {

			queryFlagChanged := cmd.Flags().Changed("query")

			if !queryFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter shopping question: ")
				input, _ := reader.ReadString('\n')
				query = strings.TrimSpace(input)
				if query == "" {
					slog.Error("Query cannot be empty")
					os.Exit(1)
				}
			} else {
				// Non-Interactive Mode (Flag provided)
				if query == "" {
					slog.Error("--query flag provided but empty")
					os.Exit(1)
				}
			}

			slog.Info("Starting recommendation run", "query", query)

			searchClient := tools.NewTavilyClient(cfg.TavilyApiKey, slog.Default())
			scrapeClient := tools.NewFirecrawlClient(cfg.FirecrawlApiKey, slog.Default())

			engine, err := shopping.NewEngine(cfg, searchClient, scrapeClient, slog.Default())
			if err != nil {
				slog.Error("Error initializing engine", "error", err)
				os.Exit(1)
			}
			engine.OnStateUpdate = func(state shopping.PipelineState) {
				slog.Info("Pipeline status", "status", state.ProcessingStatus)
			}

			state := engine.Run(context.Background(), query)

			fmt.Println()
			fmt.Println(state.FinalAnswer)
			if state.ErrorInfo != "" {
				slog.Warn("Run finished with degraded steps", "detail", state.ErrorInfo)
			}
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "The shopping question")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
