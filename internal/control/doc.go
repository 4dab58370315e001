// Package control delivers operational signals to the scheduler loop.
//
// A Channel owns a UNIX socket pair. The loop end is polled by WaitUntil and
// drained by Drain; the notify end receives one-byte markers written by the
// signal relay (SIGTERM and SIGINT terminate, SIGHUP reloads) and by the
// control socket Server on behalf of `daylog reload`. After the loop has
// handled a reload it writes an acknowledgement back through the pair, which
// releases every reload requester that was waiting for it.
//
// The signal relay does nothing but one atomic store and one non-blocking
// send per signal, so a burst of signals can never block it.
package control
