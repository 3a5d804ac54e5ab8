// Package audio owns the capture device.
//
// A [Sampler] hands out at most one [Handle] at a time. The handle streams
// raw PCM for transcription and a spectrum of byte magnitudes for level
// meters, and gives the device back on Release, on a read error or when
// the acquire context ends, whichever comes first.
package audio
