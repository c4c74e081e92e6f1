// Package store provides the in-memory implementation of the persistence
// boundary. It stores workflow definitions, run records and communication
// entries in process-local maps, cloning on read and write so callers can
// never mutate internal state. Best suited for tests and ephemeral demos;
// durable deployments use the gormstore subpackage.
package store
