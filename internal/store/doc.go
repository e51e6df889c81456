// Package store defines the persistence contract for desk records. The only
// production implementation is the spreadsheet adapter in
// internal/platform/sheets; services depend on the interface so they can be
// tested without a sheet.
package store
