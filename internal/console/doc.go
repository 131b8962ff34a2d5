// Package console is an interactive bench shell for the carrier runtime.
//
// Each line is one command that reads or writes a resource store or
// injects an engine event into the dispatcher. Type "help" for the list.
package console
