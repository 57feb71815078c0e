// Command convert runs a single conversion, or inspects the local encoder
// and the server's job history, from the command line.
//
// Usage:
//
//	convert <command> [args]
//
// Commands:
//
//	run <input> <format> [output]
//	        Convert input to format (MP3, WAV, OGG, AAC, FLAC, MP4, WEBM,
//	        GIF, AVI, MOV, MKV). The result is written beside the input
//	        unless output is given. On a terminal a progress bar is drawn;
//	        otherwise status lines and 10% steps are printed.
//
//	formats Print the output formats with their extensions and MIME types.
//
//	caps    Print the ffmpeg version and which capture signatures the
//	        installed encoders can produce.
//
//	jobs    Print the 50 most recent jobs from the server's job history.
//
// Environment:
//
//	FFMPEG_PATH  - ffmpeg binary (default: ffmpeg on PATH)
//	FFPROBE_PATH - ffprobe binary (default: ffprobe on PATH)
//	DATA_DIR     - Server data directory for 'jobs' (default: /data)
package main
