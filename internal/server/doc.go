// Package server provides the HTTP API behind the commander dashboard.
//
// All routes are mounted under the configured URL prefix (default
// "admin/commander"):
//
//   - GET  /api/list                      commands with last execution and 30-day stats
//   - POST /api/run                       run a command: {command, arguments, options}
//   - POST /api/retry                     re-run with the last arguments: {command}
//   - GET  /api/{command}/history         execution history
//   - GET  /api/{command}/stats           aggregate stats (?days=30)
//   - GET  /api/dashboard                 dashboard summary
//   - GET  /api/recent, /popular, /failed execution lists (?limit=)
//   - GET  /api/activity                  paginated, filterable executions
//   - GET  /api/search, /categories, /category/{category}
//   - GET  /api/user/{user}               executions started by one user
//   - GET  /api/schedule                  configured schedule with next runs
//   - POST /api/cleanup                   {days?, failed_only?}
//   - GET  /api/events                    SSE stream of execution events
//
// /metrics is served at the root when a collector is configured.
//
// # Responses
//
// Errors are {success: false, message, data?} with 400 for bad input, 403
// for disabled or restricted commands, 404 for unknown commands and missing
// history, and 500 otherwise. A command that runs and fails is not an error:
// run and retry answer 200 with success=false and the captured output.
//
// The requesting user is read from a header (default X-User-ID) that the
// host's auth layer is expected to set.
package server
