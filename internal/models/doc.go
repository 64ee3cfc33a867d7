// Package models defines the value types shared across stq: object ids,
// patch names and author signatures.
package models
