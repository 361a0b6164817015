// Package cliout provides user-facing output for vmc commands.
//
// Messages go to stdout in one of two formats: the default human-readable
// format (colored with fatih/color, which honors NO_COLOR and disables
// itself when stdout is not a terminal) or JSON for scripting.
//
// # Basic Usage
//
//	cliout.Success("Application %s updated", name)
//	cliout.Error("%v", err)
//	cliout.Label("Target", target)
//
//	_ = cliout.Print(app, func() {
//	    cliout.Label("State", app.State)
//	})
//
// # Display
//
// Display adapts the package functions to the apps.Display interface so
// commands can report validation failures without printing directly.
package cliout
