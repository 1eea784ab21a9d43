package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	volumes := []string{"assets", "database", "unknown"}

	for _, vol := range volumes {
		for _, op := range []string{"read", "stat", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open", "read"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, reason := range []string{"expired", "capacity", "bytes", "invalidated"} {
		ThumbnailCacheEvictions.WithLabelValues(reason)
	}

	for _, status := range []string{"resolved", "rejected", "closed"} {
		BatchTasksTotal.WithLabelValues(status)
	}

	for _, format := range []string{"jpeg", "png"} {
		for _, status := range []string{"success", "error_decode", "error_not_found", "error_encode"} {
			ThumbnailGenerationsTotal.WithLabelValues(format, status)
		}
	}

	for _, phase := range []string{"load", "decode", "resize", "encode", "total"} {
		ThumbnailGenerationDuration.WithLabelValues(phase)
	}

	for _, engine := range []string{"vips", "resize"} {
		ThumbnailIntermediatePasses.WithLabelValues(engine)
	}

	for _, class := range []string{"small", "medium", "large"} {
		ThumbnailSourceClass.WithLabelValues(class)
	}

	for _, status := range []string{"generated", "cached", "failed"} {
		ThumbnailWarmTotal.WithLabelValues(status)
	}

	for _, resource := range []string{"products", "product", "collections", "hero_images"} {
		CatalogFallbackServed.WithLabelValues(resource)
		CatalogInvalidRecords.WithLabelValues(resource)
	}

	for _, op := range []string{"initialize_schema", "list_products", "get_product", "list_collections",
		"list_certificates", "list_videos", "list_hero_images", "list_projects",
		"upsert_asset", "delete_missing_assets", "add_favorite", "remove_favorite", "list_favorites", "seed"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}
}
