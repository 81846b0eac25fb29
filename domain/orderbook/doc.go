// Package orderbook implements the in-memory price-ordered index at the
// heart of the venue. It maintains one red-black tree of open price
// levels per (collection, side), a FIFO queue of orders per level, and
// content-derived order identities, giving O(log n) best and next-best
// price discovery with first-in-first-out fairness among orders that tie
// on price.
//
// The index is single-writer and deterministic: callers serialize every
// mutation, and a failed call leaves the tree, queues and order map
// untouched. Read traversals never mutate.
package orderbook
