// Package probe inspects media files with ffprobe.
//
// The conversion engine only needs two facts about a file: the codec of its
// primary video stream and its duration in whole seconds. [Prober] is that
// contract; [FFprobe] implements it with one
// "ffprobe -print_format json -show_format -show_streams" call per query.
// Failures wrap [ErrProbe] or [ErrDurationUnknown].
package probe
