// Command dashcam is the CLI for the dashcam daemon: it launches and stops
// the daemon process, manages camera streams, inspects recording sessions and
// disk space, and tails daemon logs over the IPC socket.
package main
