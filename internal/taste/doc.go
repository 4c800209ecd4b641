// Package taste derives a user's taste fingerprint from album ratings and ranks other users
// against it. Everything here is pure computation; loading ratings and persisting profiles is the
// caller's job (see internal/services).
//
// Compute turns rating entries into a Profile: a unit-sum genre vector, top artists, a decade
// histogram, scalar metrics, and up to two archetypes. Rank scores candidate profiles against the
// requester in one of the Mode values.
package taste
