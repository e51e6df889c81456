// Package api handles incoming HTTP requests for the desk: the REST
// endpoints used by the dashboard, the legacy single-action endpoint kept
// for older clients, and the Telegram webhook. It translates HTTP concerns
// to record service calls and maps service errors to client-safe responses.
package api
