package display

import "spc-catalog/internal/media"

// SizeClass buckets sources by how expensive they are to thumbnail.
type SizeClass string

const (
	ClassSmall  SizeClass = "small"
	ClassMedium SizeClass = "medium"
	ClassLarge  SizeClass = "large"
)

// Classification thresholds.
const (
	SmallMaxBytes  = 512 << 10
	MediumMaxBytes = 2 << 20
	LargeMaxSide   = 4000

	// Large sources are capped to these.
	LargeSizeCap    = 600
	LargeQualityCap = 70
)

// Classify buckets a source by byte size, promoting any source with a side
// over LargeMaxSide to large.
func Classify(info media.SourceInfo) SizeClass {
	switch {
	case info.Width > LargeMaxSide || info.Height > LargeMaxSide:
		return ClassLarge
	case info.Bytes < SmallMaxBytes:
		return ClassSmall
	case info.Bytes < MediumMaxBytes:
		return ClassMedium
	default:
		return ClassLarge
	}
}

// Adjust lowers size and quality for large sources.
func Adjust(opts media.Options, class SizeClass) media.Options {
	if class != ClassLarge {
		return opts
	}
	opts.Size = min(opts.Size, LargeSizeCap)
	opts.Quality = min(opts.Quality, LargeQualityCap)
	return opts
}
