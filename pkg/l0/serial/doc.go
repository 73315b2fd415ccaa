// Package serial provides interrupt-driven, ring-buffered serial channels.
package serial

// A Channel owns an inbound and an outbound ring buffer and two state flags.
// Foreground code calls Send and Receive; the hardware drives the channel
// through two interrupt lines:
//
//   - transmit-complete: the previous byte left the transmitter, feed the
//     next one from the outbound buffer or finish the transmission;
//   - receive-byte: a byte is available in the receiver, classify it with
//     the channel's Framing and buffer it or end the reception.
//
// Receive returns whatever the inbound buffer holds once a frame has been
// terminated, so line framing is entirely the job of the receive handler.
