// Package gatedvoting implements payment-gated voting inside the governance
// context.
//
// A user picks a poll by its exact name, replies with the Hedera wallet they
// paid from, and receives the poll's voting link once a transfer of exactly
// the vote price to the receiving wallet shows up among that wallet's most
// recent mirror node transactions. Each (user, poll) pair is granted at most
// once; credentials live in a VoteLedger adapter (JSON file, Postgres or
// memory) and every grant is emitted as a vote.granted event through the
// outbox.
package gatedvoting
