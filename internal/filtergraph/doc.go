// Package filtergraph compiles an ordered list of timed captions into one
// ffmpeg -filter_complex expression.
//
// The chain is always shaped like
//
//	[0:v]scale=...,crop=...[v0];[v0]drawtext=...[v1];...;[vN-1]drawtext=...[vN]
//
// so the output label of caption i is the input label of caption i+1 and the
// final label vN is what the encoder maps as its video output. Caption text is
// never inlined: each caption is written to its own text file and referenced
// with textfile=, which leaves colons and quotes in user text harmless.
package filtergraph
