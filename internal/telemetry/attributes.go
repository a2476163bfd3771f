// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by all spans. Watermark text never becomes an
// attribute.
const (
	JobIDKey      = "job.id"
	JobOutcomeKey = "job.outcome"

	WatermarkKindKey     = "watermark.kind"
	WatermarkPositionKey = "watermark.position"
	WatermarkSizeKey     = "watermark.size"

	MediaMimeTypeKey = "media.mime_type"
	MediaBytesKey    = "media.bytes"

	ErrorTypeKey = "error.type"
)

// JobAttributes describes a job without user content.
func JobAttributes(jobID, kind, position, size string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, jobID),
		attribute.String(WatermarkKindKey, kind),
		attribute.String(WatermarkPositionKey, position),
		attribute.String(WatermarkSizeKey, size),
	}
}

// MediaAttributes describes a media file. Unknown values are omitted.
func MediaAttributes(mimeType string, bytes int64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if mimeType != "" {
		attrs = append(attrs, attribute.String(MediaMimeTypeKey, mimeType))
	}
	if bytes > 0 {
		attrs = append(attrs, attribute.Int64(MediaBytesKey, bytes))
	}
	return attrs
}

// EndSpan records err (if any) on span and ends it.
func EndSpan(span trace.Span, err error, errorType string) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errorType != "" {
			span.SetAttributes(attribute.String(ErrorTypeKey, errorType))
		}
	}
	span.End()
}
