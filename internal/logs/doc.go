// Package logs reads the CLI log file for `mubi logs`.
//
// Reads are bounded: Last keeps a ring of the final N lines and Since resumes
// from a byte offset, so follow mode never rescans the whole file. A trailing
// line without its newline is left for the next read.
package logs
