package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/voyflow/voyflow/pkg/cmd"
	"github.com/voyflow/voyflow/pkg/config"
	"github.com/voyflow/voyflow/pkg/execution"
	"github.com/voyflow/voyflow/pkg/log"
	"github.com/voyflow/voyflow/pkg/models"
	"github.com/voyflow/voyflow/pkg/notify"
	"github.com/voyflow/voyflow/pkg/operations"
	"github.com/voyflow/voyflow/pkg/persistence"
	"github.com/voyflow/voyflow/pkg/validation"
)

func engineConfig(command *cli.Command) (config.EngineConfig, error) {
	path := command.String("engine-config")
	if path == "" {
		return config.DefaultEngineConfig(), nil
	}

	return config.LoadEngineConfig(path)
}

// validateCommand checks a flow document file against the schema and the
// structural rules, printing every issue found.
func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a flow document file",
		ArgsUsage: "<flow.json>",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			if command.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one flow document file")
			}

			data, err := os.ReadFile(command.Args().First())
			if err != nil {
				return fmt.Errorf("failed to read flow document: %w", err)
			}

			issues, err := validation.ValidateDocumentJSON(data)
			if err != nil {
				return err
			}

			if len(issues) == 0 {
				var flow models.FlowDocument
				if err := json.Unmarshal(data, &flow); err != nil {
					return fmt.Errorf("failed to parse flow document: %w", err)
				}

				issues = validation.ValidateFlow(&flow)
			}

			if len(issues) == 0 {
				fmt.Println("flow document is valid")

				return nil
			}

			for _, issue := range issues {
				fmt.Println(issue.String())
			}

			return fmt.Errorf("flow document has %d issue(s)", len(issues))
		},
	}
}

// applyCommand applies a batch of structural operations to a stored flow.
// The batch is atomic; a failed batch leaves the stored flow untouched.
func applyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Apply an operation batch to a stored flow",
		ArgsUsage: "<flow-id> <operations.json>",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("voyflow-cli")

			if command.Args().Len() != 2 {
				return fmt.Errorf("expected a flow id and an operations file")
			}

			store := cmd.NewPersistence(command.String("database-url"))
			defer closePersistence(ctx, store)

			flow, err := store.FlowRepository().GetByID(ctx, command.Args().Get(0))
			if err != nil {
				return err
			}

			data, err := os.ReadFile(command.Args().Get(1))
			if err != nil {
				return fmt.Errorf("failed to read operations file: %w", err)
			}

			var ops []operations.Operation
			if err := json.Unmarshal(data, &ops); err != nil {
				return fmt.Errorf("failed to parse operations file: %w", err)
			}

			engine := operations.NewEngine(logger)

			result := engine.Apply(flow, ops)
			if !result.Success {
				last := result.Results[len(result.Results)-1]

				return fmt.Errorf("batch aborted: %s", last.Error)
			}

			if err := store.FlowRepository().Save(ctx, result.FinalFlow); err != nil {
				return err
			}

			fmt.Printf("applied %d operation(s) to flow %s\n", len(ops), flow.ID)

			return nil
		},
	}
}

// publishCommand publishes a stored flow after re-validating it. Only
// published flows can be run.
func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Validate and publish a stored flow",
		ArgsUsage: "<flow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			if command.Args().Len() != 1 {
				return fmt.Errorf("expected a flow id")
			}

			store := cmd.NewPersistence(command.String("database-url"))
			defer closePersistence(ctx, store)

			flow, err := store.FlowRepository().GetByID(ctx, command.Args().First())
			if err != nil {
				return err
			}

			if issues := validation.ValidateFlow(flow); len(issues) > 0 {
				for _, issue := range issues {
					fmt.Println(issue.String())
				}

				return fmt.Errorf("flow %s has %d issue(s), not published", flow.ID, len(issues))
			}

			now := time.Now().UTC()
			flow.Status = models.FlowStatusPublished
			flow.PublishedAt = &now
			flow.UpdatedAt = now

			if err := store.FlowRepository().Save(ctx, flow); err != nil {
				return err
			}

			fmt.Printf("published flow %s\n", flow.ID)

			return nil
		},
	}
}

// runCommand starts a new run of a published flow.
func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Start a run of a published flow",
		ArgsUsage: "<flow-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "variables",
				Usage: "Run variables as a JSON object",
				Value: "{}",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("voyflow-cli")

			if command.Args().Len() != 1 {
				return fmt.Errorf("expected a flow id")
			}

			cfg, err := engineConfig(command)
			if err != nil {
				return err
			}

			store := cmd.NewPersistence(command.String("database-url"))
			defer closePersistence(ctx, store)

			flow, err := store.FlowRepository().GetByID(ctx, command.Args().First())
			if err != nil {
				return err
			}

			if flow.Status != models.FlowStatusPublished {
				return fmt.Errorf("flow %s is not published", flow.ID)
			}

			var variables map[string]any
			if err := json.Unmarshal([]byte(command.String("variables")), &variables); err != nil {
				return fmt.Errorf("failed to parse variables: %w", err)
			}

			advancer := newAdvancer(cfg, logger)

			state, err := advancer.StartRun(ctx, flow, variables, nil)
			if err != nil {
				return err
			}

			if err := saveRunState(ctx, store, state); err != nil {
				return err
			}

			fmt.Printf("started run %s (status %s)\n", state.Run.ID, state.Run.Status)

			return nil
		},
	}
}

// completeCommand completes a step execution and advances the run.
func completeCommand() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Complete a step execution and advance its run",
		ArgsUsage: "<run-id> <step-execution-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "result",
				Usage: "Submitted result data as a JSON object",
				Value: "{}",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("voyflow-cli")

			if command.Args().Len() != 2 {
				return fmt.Errorf("expected a run id and a step execution id")
			}

			cfg, err := engineConfig(command)
			if err != nil {
				return err
			}

			store := cmd.NewPersistence(command.String("database-url"))
			defer closePersistence(ctx, store)

			run, err := store.RunRepository().GetByID(ctx, command.Args().Get(0))
			if err != nil {
				return err
			}

			flow, err := store.FlowRepository().GetByID(ctx, run.FlowID)
			if err != nil {
				return err
			}

			execs, err := store.ExecutionRepository().ListByRun(ctx, run.ID)
			if err != nil {
				return err
			}

			var resultData map[string]any
			if err := json.Unmarshal([]byte(command.String("result")), &resultData); err != nil {
				return fmt.Errorf("failed to parse result data: %w", err)
			}

			advancer := newAdvancer(cfg, logger)
			state := &execution.RunState{Run: run, Executions: execs}

			adv, err := advancer.CompleteStepAndAdvance(ctx, flow, state, execution.CompleteRequest{
				StepExecutionID: command.Args().Get(1),
				ResultData:      resultData,
			})
			if err != nil {
				return err
			}

			if err := saveRunState(ctx, store, state); err != nil {
				return err
			}

			switch {
			case adv.RevisionNeeded:
				fmt.Println("completion rejected, revision requested")
			case !adv.Completed:
				fmt.Println("step execution was not completable")
			case adv.FlowCompleted:
				fmt.Printf("run %s completed\n", run.ID)
			default:
				fmt.Printf("advanced to %v\n", adv.NextStepIDs)
			}

			return nil
		},
	}
}

func newAdvancer(cfg config.EngineConfig, logger *slog.Logger) *execution.Advancer {
	bus := cmd.NewEventBus("gochannel", logger)
	hooks := execution.Hooks{
		Notifier: notify.NewEventBusNotifier(bus),
	}

	return execution.NewAdvancer(cfg, hooks, logger)
}

func saveRunState(ctx context.Context, store persistence.Persistence, state *execution.RunState) error {
	if err := store.RunRepository().Save(ctx, state.Run); err != nil {
		return err
	}

	return store.ExecutionRepository().SaveAll(ctx, state.Run.ID, state.Executions)
}

func closePersistence(ctx context.Context, store persistence.Persistence) {
	if err := store.Close(ctx); err != nil {
		log.WithModule("voyflow-cli").ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}
