// Package domain contains the desk's records, their comments, status and
// priority vocabularies, and the derived statistics computed over them.
// It knows nothing about spreadsheets, HTTP, or the chat bot; those layers
// translate to and from these types.
package domain
