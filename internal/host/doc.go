// Package host contains the application side of the carrier runtime: the
// event handler that reacts to link changes and reboot requests, and the
// link controller that runs the network daemon while the LTE link is up.
package host
