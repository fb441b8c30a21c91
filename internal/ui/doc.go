// Package ui turns git subprocess activity into concise console messages and
// decides how much terminal styling a stream can take.
//
// Detailed telemetry keeps flowing through the structured diagnostic logger;
// the console logger only sees one readable line per history query plus a
// closing tally once a command finishes.
package ui
