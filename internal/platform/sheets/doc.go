// Package sheets implements the record store on top of a Google Sheets
// worksheet.
//
// Each record is one row. Column A holds the record ID, which is how rows
// are found again after other rows have been inserted or deleted. All
// network access goes through the ValuesAPI interface; Client is the
// production implementation backed by google.golang.org/api/sheets/v4.
package sheets
