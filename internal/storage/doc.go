// Package storage implements transactional resource storage: slots, slot
// groups and the storage that composes them into one index space.
//
// Every mutating method takes a *txn.Transaction. Passing nil runs the call
// in its own root scope that commits immediately; passing an open scope makes
// the change provisional until the outermost scope commits. Try* methods run
// the corresponding mutation in a nested scope that is always aborted.
//
// Versions: each slot, group and storage carries a change counter that
// advances on every mutation. Counters are part of the rolled-back state, so
// aborting a scope restores them too. A storage's listener fires once per
// committed root transaction whose net effect changed the storage.
//
// Actors select the filter and IO policy applied to an operation:
//
//	ActorMachine   loose filter, IO policy ignored
//	ActorExternal  loose filter, ExternalInsert/ExternalExtract
//	ActorPlayer    strict filter, PlayerInsert/PlayerExtract
//
// Shortfalls (no room, filter rejection, nothing to extract) are reported as
// a zero amount or false. Contract violations panic with *ContractError.
package storage
