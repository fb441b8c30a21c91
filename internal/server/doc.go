// Package server implements the acknowledgement server behind `rtfr serve`.
//
// Each workspace token owns one acknowledgement document. Clients post the README revisions a contributor has
// read; the server keeps the newest entries per README and tells the client when older ones remain so it can
// delete those it knows to be superseded. Documents live in an embedded badger database or in redis.
package server
