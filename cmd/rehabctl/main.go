// Command rehabctl is the operator CLI for the rehabilitation platform.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
