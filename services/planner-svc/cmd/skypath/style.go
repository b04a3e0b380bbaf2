package main

import "github.com/fatih/color"

var (
	bold      = color.New(color.Bold).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
	cyan      = color.New(color.FgCyan).SprintFunc()
	green     = color.New(color.FgGreen).SprintFunc()
	boldGreen = color.New(color.Bold, color.FgGreen).SprintFunc()
	boldRed   = color.New(color.Bold, color.FgRed).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	magenta   = color.New(color.Bold, color.FgMagenta).SprintFunc()
)
