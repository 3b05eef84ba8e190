// Command pinchctl controls system volume and display brightness with
// thumb-to-index pinch gestures seen by a webcam. The right hand drives
// volume and the left hand drives brightness.
//
// Subcommands:
//
//	run       run the control loop (default)
//	status    show the levels of a running instance
//	reset     ask a running instance to reset both channels
//	quit      ask a running instance to stop
//	plugins   list discovered actuator plugins
//	events    show the diagnostics journal
//	config    create or validate the configuration file
package main
