// Package vm embeds a gopher-lua runtime as the debuggee of the console.
//
// A State loads Lua chunks as program modules and keeps the debug
// information the console needs: the functions of each source file with
// their line ranges and parameter names, and the set of lines that carry
// code. It implements console.Engine over the live Lua call stack.
//
// # Suspension points
//
// Execution enters the attached Console in three places:
//   - the global function debugger(), called by the script
//   - the first statement of a chunk when stop on entry is enabled
//   - an uncaught error, before the stack unwinds
//
// The console runs on the Lua call stack itself, so frames, arguments
// and locals are read and written in place:
//
//	state := vm.NewState(vm.WithStdout(os.Stdout))
//	defer state.Close()
//
//	m, err := state.LoadFile("script.lua")
//	if err != nil {
//	    return err
//	}
//	state.Attach(session)
//	if err := state.Run(ctx, m); err != nil && !vm.IsQuit(err) {
//	    return err
//	}
//
// # Sandbox
//
// Scripts run without the chunk loaders (dofile, loadfile, load,
// loadstring) and require only resolves the safe standard libraries.
// WithUnsafeLibraries opens io, os and debug.
//
// # Breakpoints
//
// InstallBreakpoint validates a location against the compiled line table
// and records it. The State does not trap on recorded locations; scripts
// suspend through debugger().
package vm
