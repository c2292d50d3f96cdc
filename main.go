package main

import "github.com/csaibalakrishna/URL-DETECTOR/pkg/cmd"

func main() {
	cmd.Exit()
}
