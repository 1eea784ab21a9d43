// Package media reads catalog imagery from the asset tree and produces
// thumbnails.
//
// Store resolves slash-separated asset paths under the asset root, refusing
// anything that escapes it, and reads files with NFS stale-handle retry.
//
// Generator decodes a source and fits it into a size x size box, keeping the
// aspect ratio and never upscaling. Sources more than eight times larger than
// the target first go through an intermediate pass to twice the target, with
// libvips decode-time shrinking when InitVips has run and nfnt/resize
// otherwise; imaging's Lanczos filter then produces the final pixels.
// Output is JPEG or PNG; FormatAuto keeps PNG for PNG and GIF sources.
//
// ParseOptions is the single parser for thumbnail parameters used by every
// HTTP endpoint and the CLI.
package media
