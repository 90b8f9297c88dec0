// Dev tool: run a profile summary against a local Ollama instance
// without starting the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/talentdesk/backoffice/internal/config"
	"github.com/talentdesk/backoffice/internal/summary"
	"github.com/talentdesk/backoffice/pkg/models"
	"github.com/talentdesk/backoffice/pkg/ollama"
)

func main() {
	var (
		host  = flag.String("host", "http://localhost:11434", "Ollama base URL")
		model = flag.String("model", "llama3", "model name")
	)
	flag.Parse()

	ctx := context.Background()

	client, err := ollama.NewDefaultClient(config.OllamaConfig{
		BaseURL: *host,
		Timeout: 60 * time.Second,
		Retries: 1,
		Backoff: time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	engine, err := summary.NewEngine(client, config.EngineConfig{Model: *model, MinConfidence: 0.3}, nil)
	if err != nil {
		log.Fatal(err)
	}

	result, err := engine.Summarize(ctx, models.Client{
		ID:         "dev",
		Name:       "Ada Osei",
		Education:  "BSc Economics, University of Ghana",
		Employment: "4 years as a data analyst at a logistics firm",
		VisaStatus: "permanent resident",
	}, []models.Registration{
		{Service: "placement", AssignmentStatus: models.StatusActive},
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("headline:   %s\n", result.Headline)
	fmt.Printf("summary:    %s\n", result.Summary)
	fmt.Printf("skills:     %v\n", result.Skills)
	if result.Confidence != nil {
		fmt.Printf("confidence: %.2f\n", *result.Confidence)
	}
}
