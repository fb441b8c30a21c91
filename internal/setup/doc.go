// Package setup implements the init command, which writes a workspace's .rtfrrc after asking for whatever the
// command line left out.
package setup
