// Package main provides the contractpilot CLI.
//
// Usage:
//
//	contractpilot serve
//	contractpilot analyze contract.txt --format markdown
//	contractpilot anonymize contract.txt --mapping mapping.json
//
// See --help for all available options.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes.
const (
	exitCodeOK        = 0
	exitCodeFailOn    = 2 // overall risk at or above --fail-on
	exitCodeBadInput  = 3 // unreadable file, bad flag, empty contract
	exitCodeAPIError  = 4 // provider failure
	exitCodeBadOutput = 5 // model never produced valid JSON (strict mode)
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	code := 1
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	if ee == nil || ee.err != nil {
		fmt.Fprintln(os.Stderr, "contractpilot:", err)
	}
	os.Exit(code)
}
