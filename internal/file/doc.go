/*
Package file is the single-handle file access layer over a flat volume.

# Overview

A Manager owns at most one open descriptor on a volume.Driver. Opening a
file while another is open closes the previous one first; formatting the
volume or removing a file closes it as well. Operations that need an open
file fail with ErrNoOpenFile when the slot is empty and never reach the
driver.

# Reads

Read issues exactly one driver read of at most one chunk (Config.ChunkSize)
into a staging buffer. In terminator mode the buffer is scanned for the
first terminator byte; bytes after it are pushed back with a relative seek
so the next read resumes right after the terminator. A read that produces
no bytes returns io.EOF.

	m.Open("log.txt", "r")
	line, err := m.ReadLine()   // "first\n"
	rest, err := m.Read(file.ByLength(0))

A line longer than one chunk, or a final line without terminator, comes
back truncated at what the single read returned.

# Errors

Use Classify to map an error onto the caller policy:

  - KindArgument: invalid filename or read argument, nothing was touched
  - KindPrecondition: no file is open
  - KindIO: the driver refused or wrote short; report a sentinel result
  - KindFatal: the volume may be corrupt (format failure, usage invariant)

A Manager is not safe for concurrent use.
*/
package file
