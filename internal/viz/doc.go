// Package viz renders virtual lab sessions in the terminal.
//
// The live lab is a Bubble Tea program built around [Model], which drives an
// experiment controller and redraws the apparatus on a braille [Canvas] at
// 60 frames per second:
//
//   - [DrawScene]: burette and flask, pendulum bob, or mass on a spring
//   - [Theme]: four built-in colour schemes
//   - [GIFRecorder]: captures canvas frames as an animated GIF
//
// # Key Bindings
//
//	S/Space - Start the run
//	X       - Stop and take the reading
//	R       - Reset to setup
//	N/P     - Next or previous experiment
//	Tab     - Select a parameter
//	Up/Down - Adjust the selected parameter
//	T       - Cycle colour themes
//	G       - Toggle GIF recording
//	?       - Show help overlay
//
// # Recording
//
// Recordings are written when G is pressed again or when the program quits.
package viz
