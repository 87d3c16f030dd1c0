// Package chapterrun runs a repository's example programs and reports
// the ones that fail.
package chapterrun

// Version is the chapterrun release version.
const Version = "0.3.0"
