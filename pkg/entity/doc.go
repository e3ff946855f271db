// Package entity provides the reference in-memory Entity and TransactionLog.
//
// A Document is not safe for concurrent use; package session serializes access.
package entity
