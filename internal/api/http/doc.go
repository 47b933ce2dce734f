// Package http exposes the file layer over a small JSON API.
//
// Routes:
//
//	POST /api/v1/scripts   run a script against the volume
//	GET  /api/v1/files     name to size map, ?pattern= filters by glob
//	GET  /api/v1/files/:n  raw file content
//	GET  /api/v1/console   websocket script console
//	GET  /api/v1/fsinfo    free, used and total bytes
//	GET  /api/v1/fscfg     physical address and size
//	GET  /health
//
// Every handler reaches the manager through script.Runtime so HTTP requests
// and scripts never touch the volume at the same time.
package http
