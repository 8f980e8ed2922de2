// Package process supervises the external processes Halcyon spawns,
// primarily language servers speaking LSP over their standard streams.
//
// # Supervisor
//
// The Supervisor tracks every Child it starts and tears them all down on
// shutdown:
//
//	supervisor := process.NewSupervisor()
//	defer supervisor.Shutdown(5 * time.Second)
//
//	cmd := exec.Command("gopls", "serve")
//	child, err := supervisor.Start("gopls", cmd)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// child.Stdin / child.Stdout carry the protocol stream.
//	<-child.Done()
//
// # Lifecycle
//
// A Child moves Created -> Running -> Exited or Killed. Done() is closed
// exactly once when the process is reaped; ExitCode and ExitError are
// valid afterwards. Shutdown sends SIGTERM, waits the given timeout, then
// SIGKILLs anything still alive.
//
// Both Supervisor and Child are safe for concurrent use.
package process
