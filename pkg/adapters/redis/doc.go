// Package redis provides a Redis-backed LogStore and DistributedLocker.
package redis
