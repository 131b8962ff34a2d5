// Package process supervises a single child process, such as the network
// daemon that brings up the data connection once the LTE link is up.
//
// A Supervisor starts the binary in its own process group, logs its
// output, restarts it after an unexpected exit and stops it with SIGTERM
// followed by SIGKILL after a grace period.
//
//	sup := process.NewSupervisor(process.Config{
//	    Name:   "pppd",
//	    Binary: "/usr/sbin/pppd",
//	    Args:   []string{"call", "lte"},
//	})
//	if err := sup.Start(); err != nil {
//	    return err
//	}
//	defer sup.Stop()
package process
