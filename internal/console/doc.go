// Package console implements the interactive command loop of the
// debugger.
//
// A Session is entered each time the debugged program suspends. It reads
// commands from a Platform, resolves them by unique prefix and runs them
// against an Engine until one resumes execution. Breakpoints and the
// source cache belong to the Session and outlive every activation.
package console
