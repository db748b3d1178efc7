// Package metrics defines the custom Prometheus metrics of the listing
// service. All metrics are registered with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "listings"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "ok", "duplicate", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Listing metrics ───────────────────────────────────────────────────────────

// ListingsCreatedTotal counts successfully created listings.
var ListingsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Total number of listings created.",
	},
)

// ListingUploadFailuresTotal counts rejected or failed listing uploads.
// Label:
//   - reason: "validation", "wrong_image_count", "malformed_amenities",
//     "storage_write" or "internal"
var ListingUploadFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_failures_total",
		Help:      "Total number of listing uploads that did not produce a listing.",
	},
	[]string{"reason"},
)

// ImagesIngestedTotal counts image files committed to the media directory.
var ImagesIngestedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "images_ingested_total",
		Help:      "Total number of images written to the media directory.",
	},
)

// ListingsDeletedTotal counts delete requests.
// Label:
//   - result: "ok" or "forbidden"
var ListingsDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deleted_total",
		Help:      "Total number of listing delete requests, by result.",
	},
	[]string{"result"},
)

// ── Media janitor metrics ─────────────────────────────────────────────────────

// MediaPurgedTotal counts janitor outcomes.
// Label:
//   - result: "removed", "error" or "dropped" (queue full)
var MediaPurgedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "media_purged_total",
		Help:      "Total number of image purge attempts, by result.",
	},
	[]string{"result"},
)

// JanitorQueueDepth tracks the images waiting in each janitor worker channel.
var JanitorQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "janitor_queue_depth",
		Help:      "Current number of images pending in each janitor worker channel.",
	},
	[]string{"worker_id"},
)
