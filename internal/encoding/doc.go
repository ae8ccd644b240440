// Package encoding turns a source video into HLS renditions.
//
// FFmpeg runs one external encode per rendition, producing a VOD media
// playlist plus numbered MPEG-TS segments in the rendition's directory.
// Coordinator fans a job's renditions out across a bounded number of encode
// slots and always lets every started encode run to completion before
// reporting, so a failing rendition never leaves siblings half-written by
// cancellation.
package encoding
