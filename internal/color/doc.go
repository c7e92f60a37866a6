// Package color converts between the HSV triples the controller's API
// accepts and the 8-bit RGB it drives, and describes the controller's preset
// colours.
//
// Hue is cyclic in degrees and always wrapped into [0,360). Saturation and
// value are percentages clamped into [0,100] before any conversion. RGB
// channels are truncated, so a round trip through RGBToHSV and back is
// stable to within one unit per channel.
package color
