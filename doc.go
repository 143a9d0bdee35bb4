// Package session provides session-claim validation and access-token payload
// synchronization for authentication SDKs.
//
// Claims and validators:
//   - A Claim is a named, independently fetchable unit of truth stored inside
//     a session's access-token payload (a role, a permission list, a verified
//     flag). Claims know how to fetch their value from a backing identity
//     store and how to represent, read, and remove that value in a payload.
//   - A ClaimValidator checks whether a payload satisfies a condition and
//     carries its own policy for when its claim is stale enough to refetch.
//     Validators may be bound to a claim or stand alone.
//
// The claims engine:
//   - Session.AssertClaims walks validators in caller order, lazily refetching
//     stale claim values, and commits any refreshed payload back through the
//     StoreGateway before reporting validation failures. Later validators
//     observe payload changes made by earlier ones within the same pass.
//
// Storage:
//   - StoreGateway abstracts the backing identity store. The store subpackage
//     ships a Bun-backed reference gateway that persists sessions in SQL and
//     mints JWT access tokens; production deployments can swap in a remote
//     client that satisfies the same interface.
package session
