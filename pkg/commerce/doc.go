// Package commerce holds the client-side commerce state containers: the cart,
// the wishlist and the recently-viewed list.
//
// Every container is an explicitly constructed value that owns its slice of
// state. Each mutation updates memory and then writes a full snapshot through
// a persist.Adapter while still holding the container lock, so the stored
// order always matches the mutation order. Subscribers are notified with a
// copy of the new state after the lock is released.
//
// A failed snapshot write never rolls back memory: the mutation stays visible
// and the wrapped persistence error is returned to the caller.
package commerce
