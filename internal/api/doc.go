// Package api exposes the transfer service over HTTP: intent submission,
// status queries, listings and the chain-selector table.
package api
