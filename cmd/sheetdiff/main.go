package main

import "github.com/sheetdiff-project/sheetdiff/cmd"

func main() {
	cmd.Execute()
}
