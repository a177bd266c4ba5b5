// Package cryptotax computes realized crypto gains and the resulting yearly
// tax from exchange activity.
//
// The durable state is deliberately small: a deduplicated, time-sorted ledger
// of activity entries, a per-asset table of daily EUR closes, and one
// watermark per data source. Everything else (disposal events, yearly
// summaries, balances) is derived on demand and recomputed on every run.
//
// Synchronization is incremental and idempotent. Each source is fetched from
// its watermark, fetched records are normalized and merged by reference id,
// and merging the same batch twice changes nothing. Disposals are then
// matched against open acquisition lots under a configured method (FIFO or
// LIFO), valued in EUR, and aggregated per calendar year with a configurable
// exemption threshold and flat rate.
//
// Data problems surface as warnings, not corrections: an unknown asset code,
// an unresolvable valuation or a disposal exceeding the open lots is always
// reported, never silently patched over.
package cryptotax
