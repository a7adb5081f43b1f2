package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the value of the --ui flag.
type uiMode uint8

const (
	uiAuto uiMode = iota
	uiOn
	uiOff
)

var uiModes = map[string]uiMode{"": uiAuto, "auto": uiAuto, "on": uiOn, "off": uiOff}

func parseUIMode(value string) (uiMode, error) {
	m, ok := uiModes[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
	return m, nil
}

// progressView decides whether the progress view is shown. In auto mode it
// needs a terminal on stderr and is suppressed by --quiet and by machine
// output, which the view would interleave with.
func (m uiMode) progressView(quiet, machineOutput bool) bool {
	switch m {
	case uiOn:
		return true
	case uiOff:
		return false
	}
	return !quiet && !machineOutput && isTerminal(os.Stderr)
}
