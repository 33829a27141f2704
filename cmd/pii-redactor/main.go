// Package main is the entry point for the pii-redactor CLI.
//
// Usage:
//
//	echo '[{"role":"user","content":"I am john@x.com"}]' | pii-redactor redact --session-id s1
//	echo 'Hello «EMAIL_001»' | pii-redactor rehydrate --session-id s1
//	pii-redactor serve --port 8787
//
// See --help for the full set of subcommands and flags.
package main

import "os"

func main() {
	os.Exit(Execute())
}
