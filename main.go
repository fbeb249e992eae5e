// package main is the entry point of the cve-triage service and CLI.
package main

import "github.com/ortelius/cve-triage/cmd"

func main() {
	cmd.Execute()
}
