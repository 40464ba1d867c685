// Package commands provides the CLI command groups of sportdb.
//
// There are two ways to use commands from this package:
//
// 1. Via the Commands factory:
//
//	commands := commands.New(lggr)
//	pipelineCmd, err := commands.Pipeline()
//	if err != nil {
//	    return err
//	}
//	app.AddCommand(pipelineCmd)
//
// 2. Via direct package imports, injecting loaders for testing:
//
//	import "github.com/inattention/sportdata/engine/commands/pipeline"
//
//	cmd, err := pipeline.NewCommand(pipeline.Config{
//	    Logger: lggr,
//	    Deps:   pipeline.Deps{...},
//	})
package commands

import (
	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/engine/commands/fetch"
	"github.com/inattention/sportdata/engine/commands/pipeline"
	"github.com/inattention/sportdata/engine/commands/report"
	"github.com/inattention/sportdata/pkg/logger"
)

// Commands creates the command groups with a shared logger.
type Commands struct {
	lggr logger.Logger
}

// New creates a new Commands factory with the given logger.
func New(lggr logger.Logger) *Commands {
	return &Commands{lggr: lggr}
}

// Pipeline creates the pipeline command group running the stages.
func (c *Commands) Pipeline() (*cobra.Command, error) {
	return pipeline.NewCommand(pipeline.Config{Logger: c.lggr})
}

// Fetch creates the fetch command group for inspecting provider payloads.
func (c *Commands) Fetch() (*cobra.Command, error) {
	return fetch.NewCommand(fetch.Config{Logger: c.lggr})
}

// Report creates the report command group.
func (c *Commands) Report() (*cobra.Command, error) {
	return report.NewCommand(report.Config{Logger: c.lggr})
}

// All creates every command group in display order.
func (c *Commands) All() ([]*cobra.Command, error) {
	var cmds []*cobra.Command
	for _, build := range []func() (*cobra.Command, error){c.Pipeline, c.Fetch, c.Report} {
		cmd, err := build()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}

	return cmds, nil
}
