// Package tracker provides the valuation and synchronization core of a personal
// equity holdings tracker. It keeps several named profiles of holdings, prices
// them against live market data and persists the whole state as a single JSON
// document in a remote blob store.
//
// The core functionalities include:
//   - Profile Store: named, ordered lists of holdings (lots) with one active
//     profile, and the lifecycle rules that keep at least one profile alive.
//   - Market Data: a three tier quote resolution over a pluggable adapter,
//     memoized by a clock driven TTL cache, and an exchange rate cache that
//     never fails its callers.
//   - Valuation: per holding and aggregated invested amount, market value,
//     profit and loss and return, computed in the base currency (USD) first and
//     projected into a display currency afterwards.
//   - Ingestion and Refresh: single and batch (CSV) additions, and in place
//     price refreshes that tolerate per ticker failures.
//   - Remote Sync: whole document load and save, including the migration of
//     the legacy single list document into the multi profile document.
//
// All operations run through a Session, an explicit application state handle,
// which serves as the foundation of the `pt` command-line tool and its HTTP
// dashboard.
package tracker
