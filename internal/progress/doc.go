// Package progress turns elapsed playback time into a percentage and
// delivers it to an optional observer without ever going backwards.
//
// Audio conversions map decoding to the range below AudioBase and the
// capture run to AudioBase..Ceiling. Video conversions follow the playback
// position directly. Done is delivered once, after capture has closed.
package progress
