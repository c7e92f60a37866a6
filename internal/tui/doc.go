// Package tui is the interactive ledbench console.
//
// Two screens share one session. The discovery screen sweeps the subnet,
// lists devices, toggles the UDP listener and accepts a manual IP. The
// control screen drives the connected controller: power, presets,
// brightness, a colour wheel that answers to the mouse or the arrow keys,
// the built-in sequences, broadcast on/off and report export.
//
// The AppModel's Update is the session's only writer. Anything that blocks
// (dialling, control calls, sweeps, sequences, the listener) runs on a
// worker that Posts events; a tea.Cmd waits on Session.Events and hands
// each event back to Update, which applies it.
//
//	app := tui.Options{Session: sess, Sweeper: scanner, Wheel: picker.DefaultCircle()}
//	if err := tui.Run(app); err != nil {
//	    return err
//	}
package tui
