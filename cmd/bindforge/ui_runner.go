package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"bindforge/internal/driver"
	"bindforge/internal/ui"
)

type generateOutcome struct {
	result *driver.Result
	err    error
}

// runGenerateWithUI runs the pipeline in the background and renders its
// progress on stderr until the event channel is closed.
func runGenerateWithUI(ctx context.Context, title string, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan generateOutcome, 1)

	platforms := make([]string, 0, len(opts.Platforms))
	for _, p := range opts.Platforms {
		if p.Triple != "" {
			platforms = append(platforms, p.Triple)
		} else {
			platforms = append(platforms, p.Path)
		}
	}

	go func() {
		opts.Sink = driver.ChannelSink(events)
		res, err := driver.Generate(ctx, opts)
		outcomeCh <- generateOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, platforms, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// если UI завершился раньше, генерация не должна блокироваться на отправке
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
