// Package simulator is a stub LED controller for exercising ledbench
// without hardware.
//
// It serves the controller's HTTP API (/api/info, /api/control and
// /api/broadcast), rejects invalid parameters with 400, animates the
// rainbow preset, and while broadcast is enabled multicasts a JSON
// announcement to 224.0.0.1:8888. A websocket feed at /ws pushes a state
// snapshot on every change so the LED colour can be watched live.
package simulator
