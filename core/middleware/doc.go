// Package middleware groups the HTTP middleware of the Fiber application.
//
// # Components
//
//   - auth: API key validation on the X-API-Key header.
//   - rayid: a request id (RayID) for every request, stored in the context
//     locals and echoed in the X-Ray-ID response header.
//
// Both are registered globally by the start command, rayid first.
package middleware
