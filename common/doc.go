// Package common provides shared constants, types, utilities, and interfaces
// used throughout the Next Generation Tracker client.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: application metadata, file names, API routes, user messages
//   - Errors: sentinel errors and the ErrorKind classification shown to users
//   - Types: the account profile and job report exchanged with the backend
//   - Logger: leveled logging on logrus with file output and rotation
//   - Utils: data directory lookup and atomic file writes
//
// # Usage
//
//	common.LogInfo("Submitting job for %s", gameID)
//
//	switch common.KindOf(err) {
//	case common.KindConnectionRefused:
//	    // backend unreachable
//	}
//
// Any code surfacing an error next to a form should go through UserMessage
// so that transport details never leak into the window.
package common
