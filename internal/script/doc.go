/*
Package script runs JavaScript against the file layer.

# Overview

A Runtime wraps a goja VM and exposes a global `file` object backed by a
single file.Manager. Scripts see the same single-handle semantics as Go
callers:

	file.open("init.lua", "w")
	file.writeline("print('hi')")
	file.close()

	file.open("init.lua")
	var line = file.readline()   // "print('hi')\n"

# Error surfacing

  - Bad arguments throw a TypeError: bad argument #N to 'op' (msg)
  - Using a handle with no file open throws Error: open a file first
  - Driver failures are reported as null (or false for rename/exists)
  - Volume integrity failures stop the script; Execute returns the
    *file.FatalError and nothing in the script can catch it

# Isolation

require, process, module and exports are removed from the global scope and
timers are no-ops. Execution is bounded by Config.Timeout and the caller's
context.
*/
package script
