package main

import "github.com/zero-motorcycle-community/zero-log-parser/internal/cmd"

func main() {
	cmd.Execute()
}
