// Package bot contains the message dispatcher, command parser, and relay engine.
//
// Every inbound message lands in Bot.HandleMessage, which either:
//   - parses a prefixed command (help/list/register/forget/switch/stop, or any other
//     keyword treated as an ad-hoc identity), or
//   - relays an unprefixed message under the author's active switch, if one is set.
//
// Relaying creates a short-lived webhook in the target channel, posts the text under
// the identity's nick and avatar, deletes the webhook again, records provenance for
// the relayed message, and removes the original message.
//
// The chat platform is consumed through the Transport interface and persistence
// through the Store interface, so the whole state machine is testable with fakes.
package bot
