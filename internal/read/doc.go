// Package read records that the configured git identity has read a README at its latest committed revision.
package read
