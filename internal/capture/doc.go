// Package capture records a spoken answer from a live input device.
//
// A Capturer holds at most one Session. Starting a session opens the device
// with the fixed DefaultConstraints and buffers every fragment the stream
// emits in arrival order; stopping it releases the device and joins the
// fragments into a single Clip tagged with the negotiated MIME type.
// Record wraps the whole lifecycle so the device is released on every path.
//
// Device failures are reported as *Error values whose Kind distinguishes
// denied permission, a missing device and a busy device from anything else.
package capture
