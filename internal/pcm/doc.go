// Package pcm holds decoded audio (the sample buffer) and the lossless
// RIFF/WAVE container it can be packed into without any capture step.
package pcm
