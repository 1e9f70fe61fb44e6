/*
Package registry holds the shared mutable state of the relay: the connection
registry (who is online) and the group registry (who belongs to which group).

Both registries support concurrent insert, remove, lookup, and iteration from
many connection handlers at once without external locking. Iteration works on
point-in-time snapshots, so a broadcast may race with connects and disconnects:
a just-departed user can still be offered a message (dropped at delivery) and a
just-arrived user can miss a broadcast that started before registration. That
staleness is inherent to best-effort delivery; the registries themselves are
never corrupted by it.

No transactional guarantee spans multiple registry operations.
*/
package registry
