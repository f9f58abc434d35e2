// Package logger builds the zap logger shared by the server, the merge
// engine and the CLI commands.
//
// Level and Format come from the log section of the configuration. Format
// "console" selects zap's development encoder; anything else logs JSON.
//
// Request handlers attach the request's ray id with WithRayID so that every
// entry written while serving a request can be correlated:
//
//	l := logger.WithRayID(log, c)
//	l.Warn("Cache request rejected", zap.Error(err))
package logger
