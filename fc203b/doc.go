// Package fc203b drives a Gilson FC-203B fraction collector over a GSIOC
// bus session.
//
// The controller translates positions in millimeters and tube numbers into
// the instrument's command vocabulary, sequences the X axis before the Y
// axis as the hardware requires, and polls the axis status flags until a
// motion completes. All blocking operations take a context and honor its
// cancellation between polls.
package fc203b
