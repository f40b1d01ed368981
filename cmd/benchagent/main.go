package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/m2tx/benchagent/internal/app"
	"github.com/m2tx/benchagent/internal/config"
	"github.com/m2tx/benchagent/internal/log"
)

func main() {
	username := flag.String("username", os.Getenv("HF_USERNAME"), "account the answers are submitted for")
	agentCode := flag.String("agent-code", "", "link to the agent source, sent with the submission")
	dryRun := flag.Bool("dry-run", false, "answer every question without submitting")
	output := flag.String("output", "", "write the results table as JSON to this file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close(context.Background())

	code := *agentCode
	if code == "" {
		if space := os.Getenv("SPACE_ID"); space != "" {
			code = fmt.Sprintf("https://huggingface.co/spaces/%s/tree/main", space)
		}
	}

	report, err := a.Runner(*username, code, *dryRun).Run(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	for _, row := range report.Rows {
		fmt.Printf("%s\t%s\t%s\n", row.TaskID, row.SubmittedAnswer, row.Note)
	}
	fmt.Println(report.Status)

	if *output != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("encode report: %v", err)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			log.Fatalf("write report: %v", err)
		}
	}
}
