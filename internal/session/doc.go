// Package session holds the state of one bench session: the active
// connection, the result log, discovered devices and the broadcast backlog.
//
// A Session belongs to one interactive loop. Blocking work (sweeps,
// sequences, the UDP listener) runs on workers that never touch Session
// state directly; they Post typed events, and the loop drains Events and
// calls Apply. Apply is the only writer.
//
//	s := session.New(session.Options{Port: 80})
//	if err := s.Connect(ctx, "192.168.1.23"); err != nil {
//	    return err
//	}
//	_ = s.Do(ctx, session.Preset(1))
//	fmt.Println(s.Results().Summary())
package session
