// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command reqgraph builds a traceability knowledge graph from Markdown
// requirement documents and validates, queries, diffs and reports on it.
//
// Usage:
//
//	reqgraph validate [--strict] [--watch] [--format text|json] [--at REF]
//	reqgraph query ID [--upstream] [--downstream] [--depth N] [--type T]...
//	reqgraph diff REF1 [REF2] [--stat]
//	reqgraph report coverage|matrix [--format text|json|csv]
//	reqgraph parse [--at REF]
//	reqgraph next-id TYPE
//	reqgraph init TYPE FILE [--id ID] [--name N] [--refines ID]... [--force]
//	reqgraph edit ID [--name N] [--description D] [--satisfies ID]...
//
// Exit codes: 0 on success, 1 when validation finds errors, an item does
// not exist, identifiers are duplicated or an init/edit request is
// rejected, 2 on any other failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/reqgraph/pkg/ux"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(stdout, stderr)
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	a.close(context.WithoutCancel(ctx))
	return exitCode(err, ux.NewPrinter(stderr, ux.ColorAuto))
}

// exitCode maps a command error to an exit status, printing the message
// of anything other than a bare exit status.
func exitCode(err error, p *ux.Printer) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			p.Error(ee.msg)
		}
		return ee.code
	}
	p.Error(fmt.Sprintf("Error: %v", err))
	return 2
}

// exitError ends a command with a specific exit code. The command has
// already reported the reason when msg is empty.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func exitWith(code int) error {
	return &exitError{code: code}
}
