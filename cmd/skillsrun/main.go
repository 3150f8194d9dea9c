// Command skillsrun is the CLI shell around the skills runtime core: it
// resolves configuration, wires the event log and bus, and drives a
// single run to completion. Per-tool handler bodies, the chat backend,
// and approval providers are supplied by the features/ adapters chosen at
// build time; this binary is intentionally thin.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"goa.design/skillsruntime/bootstrap"
	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/loop"
	"goa.design/skillsruntime/prompt"
	"goa.design/skillsruntime/safety"
	"goa.design/skillsruntime/tools"
	"goa.design/skillsruntime/wal/filestore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "skillsrun",
		Short: "Run a skills-runtime agent task from the command line",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration overlay")

	root.AddCommand(newRunCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new run for the given task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap.Load(*configPath, bootstrap.Config{})
			if err != nil {
				return err
			}
			return runTask(cmd.Context(), cfg, task)
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "the task to hand to the agent")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func runTask(ctx context.Context, cfg bootstrap.Config, task string) error {
	store, err := filestore.Open(cfg.WorkspaceDir + "/.skillsruntime/runs")
	if err != nil {
		return err
	}
	defer store.Close()

	bus := hooks.NewBus(nil)
	sub, _ := bus.Register(stdoutSubscriber{})
	defer sub.Close()

	emitter := hooks.NewEmitter(store, bus)
	registry := tools.NewRegistry()
	gate := safety.NewGate(safety.NewSanitizer(), safety.NewPolicy(), nil).WithEmitter(emitter)
	dispatcher := tools.NewDispatcher(registry, gate, nil, nil)

	runCfg := loop.Config{
		Emitter:    emitter,
		Dispatcher: dispatcher,
		Backend:    noBackendConfigured{},
		Prompt:     &prompt.Manager{InjectionMaxBytes: cfg.InjectionMaxBytes},
		Recovery:   loop.RecoveryConfig{Mode: loop.RecoveryMode(cfg.RecoveryMode), CompactionKeepLastMessages: 20},
		MaxSteps:   cfg.MaxSteps,
		MaxWall:    time.Duration(cfg.MaxWallSeconds) * time.Second,
	}
	run := loop.NewRun(runCfg)
	term := run.Stream(ctx, task)
	if !term.OK {
		return fmt.Errorf("run failed (%s): %s", term.Kind, term.Message)
	}
	fmt.Println(term.Message)
	return nil
}

type stdoutSubscriber struct{}

func (stdoutSubscriber) HandleEvent(_ context.Context, evt hooks.Event) error {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", evt.Type(), evt.RunID())
	return nil
}

// noBackendConfigured is the placeholder ChatBackend until a features/model/*
// adapter is wired in by the embedding application.
type noBackendConfigured struct{}

func (noBackendConfigured) ChatStream(context.Context, prompt.Compiled, []prompt.Message) (<-chan loop.Delta, error) {
	return nil, fmt.Errorf("cmd/skillsrun: no chat backend configured; wire a features/model/* adapter")
}
