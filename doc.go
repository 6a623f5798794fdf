// Package yoga is a booking backend for yoga classes.
//
// Users register and log in through the auth package, browse teachers
// and sessions and join or leave sessions. Every route under /api except
// login and register needs a bearer token.
//
// Participation:
//   - ParticipationMachine owns the (session, user) pair state. Join and
//     Leave run inside a single bun transaction and persist the whole
//     participant list through Sessions().SaveParticipantsTx.
//   - Failures are typed go-errors values. Use HasTextCode or the error
//     category to tell a missing session from a duplicate join.
//   - TransitionHook runs after persistence and inside the transaction, a
//     hook error rolls the transition back.
//
// Persistence:
//   - Schema and seed data live in data/sql/migrations, one directory per
//     dialect, applied by Migrate with bun/migrate.
package yoga
