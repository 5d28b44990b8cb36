// Command trackfinder forms track candidates from telescope hit files.
package main

import "github.com/banshee-data/trackfinder/cmd/trackfinder/cmd"

func main() {
	cmd.Execute()
}
