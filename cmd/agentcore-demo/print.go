package main

import (
	"fmt"
	"os"

	"github.com/haasonsaas/agentcore/internal/agentevent"
)

// printEvents drains a Stream's Events channel to stdout/stderr, printing
// assistant text as it streams and a line per tool call, then returns the
// run's final new-message count once the stream closes.
func printEvents(stream *agentevent.Stream) int {
	printedTurnHeader := false
	for ev := range stream.Events() {
		switch ev.Type {
		case agentevent.TurnStart:
			printedTurnHeader = false
		case agentevent.MessageUpdate:
			if ev.Stream != nil && ev.Stream.Kind == "text_delta" {
				if !printedTurnHeader {
					fmt.Print("assistant: ")
					printedTurnHeader = true
				}
				fmt.Print(ev.Stream.Delta)
			}
		case agentevent.MessageEnd:
			if printedTurnHeader {
				fmt.Println()
			}
		case agentevent.ToolExecutionStart:
			if ev.Tool != nil {
				fmt.Fprintf(os.Stderr, "  -> calling tool %s\n", ev.Tool.ToolName)
			}
		case agentevent.ToolExecutionEnd:
			if ev.Tool != nil && ev.Tool.IsError {
				fmt.Fprintf(os.Stderr, "  !! tool %s failed\n", ev.Tool.ToolName)
			}
		case agentevent.AdvisorStart:
			if ev.Advisor != nil {
				fmt.Fprintf(os.Stderr, "  -> advisor %s fired\n", ev.Advisor.AdvisorName)
			}
		case agentevent.AdvisorError:
			if ev.Advisor != nil {
				fmt.Fprintf(os.Stderr, "  !! advisor %s errored: %v\n", ev.Advisor.AdvisorName, ev.Advisor.Err)
			}
		}
	}
	return len(stream.Result())
}
